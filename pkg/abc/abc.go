// Package abc computes ABC (Assignments, Branches, Conditions) metrics from
// JVM bytecode.
//
// Counting rules per instruction:
//   - A: local variable stores (istore, lstore, fstore, dstore, astore in
//     every encoding) and iinc.
//   - B: method invocations (invokevirtual, invokespecial, invokestatic,
//     invokeinterface, invokedynamic) and object creation (new).
//   - C: conditional jumps (every jump except goto and jsr) count one;
//     tableswitch and lookupswitch count one per case label.
package abc

import (
	"fmt"
	"math"

	"github.com/Sumatoshi-tech/jarfang/pkg/classfile"
)

// Metrics holds ABC counts. The zero value is ready to use.
type Metrics struct {
	Assignments int `json:"assignments" yaml:"assignments"`
	Branches    int `json:"branches"    yaml:"branches"`
	Conditions  int `json:"conditions"  yaml:"conditions"`
}

// Add accumulates other into m.
func (m *Metrics) Add(other Metrics) {
	m.Assignments += other.Assignments
	m.Branches += other.Branches
	m.Conditions += other.Conditions
}

// Magnitude is the Euclidean norm sqrt(A² + B² + C²).
func (m Metrics) Magnitude() float64 {
	a := float64(m.Assignments)
	b := float64(m.Branches)
	c := float64(m.Conditions)

	return math.Sqrt(a*a + b*b + c*c)
}

func (m Metrics) String() string {
	return fmt.Sprintf("ABC(A=%d, B=%d, C=%d, magnitude=%.2f)",
		m.Assignments, m.Branches, m.Conditions, m.Magnitude())
}

// Count updates m for a single instruction.
func (m *Metrics) Count(insn classfile.Instruction) {
	switch insn.Kind {
	case classfile.KindVar:
		if insn.Opcode.IsStore() {
			m.Assignments++
		}
	case classfile.KindIinc:
		m.Assignments++
	case classfile.KindMethod, classfile.KindInvokeDynamic:
		m.Branches++
	case classfile.KindType:
		if insn.Opcode == classfile.NEW {
			m.Branches++
		}
	case classfile.KindJump:
		if insn.Opcode != classfile.GOTO && insn.Opcode != classfile.JSR {
			m.Conditions++
		}
	case classfile.KindTableSwitch, classfile.KindLookupSwitch:
		m.Conditions += insn.Targets
	}
}

// ForMethod computes the metrics of one method body. Methods without code
// yield zero metrics.
func ForMethod(cf *classfile.ClassFile, method classfile.Member) (Metrics, error) {
	var m Metrics

	if method.Code == nil {
		return m, nil
	}

	err := classfile.WalkCode(cf, method.Code, func(insn classfile.Instruction) error {
		m.Count(insn)

		return nil
	})
	if err != nil {
		return Metrics{}, fmt.Errorf("method %s%s: %w", method.Name, method.Descriptor, err)
	}

	return m, nil
}
