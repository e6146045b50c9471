package report

import (
	"fmt"
	"io"
	"path"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/jarfang/pkg/analysis"
)

const (
	chartWidth     = "100%"
	chartHeight    = "480px"
	pieHeight      = "360px"
	pieRadius      = "60%"
	labelRotate    = 30
	chartPageTitle = "jarfang report"
)

// Plot writes an HTML page charting the top n classes by ABC magnitude, the
// archive ABC totals and the class/interface split.
func Plot(w io.Writer, result analysis.Result, n int) error {
	page := components.NewPage()
	page.PageTitle = chartPageTitle + ": " + result.JarFileName

	page.AddCharts(
		magnitudeChart(result, n),
		abcChart(result),
		kindsChart(result),
	)

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}

func magnitudeChart(result analysis.Result, n int) *charts.Bar {
	top := result.TopClasses(n)
	labels := make([]string, len(top))
	data := make([]opts.BarData, len(top))

	for i, c := range top {
		labels[i] = path.Base(c.Name)
		data[i] = opts.BarData{Name: c.Name, Value: c.Magnitude}
	}

	subtitle := fmt.Sprintf("top %d of %d", len(top), len(result.Classes))
	if len(top) == 0 {
		subtitle = "No per-class data"
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "ABC Magnitude by Class", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: labelRotate}}),
	)
	bar.SetXAxis(labels).AddSeries("Magnitude", data)

	return bar
}

func abcChart(result analysis.Result) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    "ABC Totals",
			Subtitle: fmt.Sprintf("magnitude %.2f", result.ABC.Magnitude),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis([]string{"Assignments", "Branches", "Conditions"}).
		AddSeries("Count", []opts.BarData{
			{Value: result.ABC.TotalAssignments},
			{Value: result.ABC.TotalBranches},
			{Value: result.ABC.TotalConditions},
		})

	return bar
}

func kindsChart(result analysis.Result) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: pieHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Classes and Interfaces"}),
	)

	pie.AddSeries("Kinds", []opts.PieData{
		{Name: "Classes", Value: result.TotalClasses},
		{Name: "Interfaces", Value: result.TotalInterfaces},
	}).SetSeriesOptions(
		charts.WithPieChartOpts(opts.PieChart{Radius: pieRadius}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {c}"}),
	)

	return pie
}
