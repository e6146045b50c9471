// Package classinfo summarizes a parsed class file into the structural facts
// the jar analyzers need: hierarchy, method signatures, field count and ABC.
package classinfo

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/jarfang/pkg/abc"
	"github.com/Sumatoshi-tech/jarfang/pkg/classfile"
)

// ErrEmptyName is returned when a class has no name.
var ErrEmptyName = errors.New("class name cannot be empty")

// Method identifies a method by name and descriptor. Two methods with equal
// signatures are the same method for override detection.
type Method struct {
	Name       string `json:"name"       yaml:"name"`
	Descriptor string `json:"descriptor" yaml:"descriptor"`
}

// IsConstructor reports whether m is an instance initializer.
func (m Method) IsConstructor() bool {
	return m.Name == classfile.ConstructorName
}

// IsStaticInitializer reports whether m is a class initializer.
func (m Method) IsStaticInitializer() bool {
	return m.Name == classfile.StaticInitializerName
}

func (m Method) String() string {
	return m.Name + m.Descriptor
}

// ClassInfo is the per-class summary.
type ClassInfo struct {
	Name        string      `json:"name"                yaml:"name"`
	SuperName   string      `json:"superName,omitempty" yaml:"superName,omitempty"`
	Interfaces  []string    `json:"interfaces"          yaml:"interfaces"`
	Methods     []Method    `json:"methods"             yaml:"methods"`
	FieldCount  int         `json:"fieldCount"          yaml:"fieldCount"`
	ABC         abc.Metrics `json:"abc"                 yaml:"abc"`
	IsInterface bool        `json:"isInterface"         yaml:"isInterface"`
}

func (c ClassInfo) String() string {
	return fmt.Sprintf("ClassInfo{name='%s', super='%s', interfaces=%v, methods=%d, fields=%d}",
		c.Name, c.SuperName, c.Interfaces, len(c.Methods), c.FieldCount)
}

// FromClassFile builds a ClassInfo. The class ABC metrics are the sum over
// all method bodies. Methods are deduplicated by signature and sorted.
func FromClassFile(cf *classfile.ClassFile) (ClassInfo, error) {
	if cf.ThisClass == "" {
		return ClassInfo{}, ErrEmptyName
	}

	info := ClassInfo{
		Name:        cf.ThisClass,
		SuperName:   cf.SuperClass,
		Interfaces:  slices.Clone(cf.Interfaces),
		FieldCount:  len(cf.Fields),
		IsInterface: cf.IsInterface(),
	}

	if info.Interfaces == nil {
		info.Interfaces = []string{}
	}

	methods := make([]Method, 0, len(cf.Methods))

	for _, m := range cf.Methods {
		methods = append(methods, Method{Name: m.Name, Descriptor: m.Descriptor})

		metrics, err := abc.ForMethod(cf, m)
		if err != nil {
			return ClassInfo{}, fmt.Errorf("%s: %w", cf.ThisClass, err)
		}

		info.ABC.Add(metrics)
	}

	info.Methods = SortMethods(methods)

	return info, nil
}

// Parse is classfile.Parse followed by FromClassFile.
func Parse(data []byte) (ClassInfo, error) {
	cf, err := classfile.Parse(data)
	if err != nil {
		return ClassInfo{}, err
	}

	return FromClassFile(cf)
}

// SortMethods sorts by name then descriptor and drops duplicates, in place.
func SortMethods(methods []Method) []Method {
	slices.SortFunc(methods, func(a, b Method) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Descriptor, b.Descriptor))
	})

	return slices.Compact(methods)
}
