package classfile_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/jarfang/pkg/classfile"
	"github.com/Sumatoshi-tech/jarfang/pkg/classfile/classfiletest"
)

// walk builds a class with a single method holding code and returns the
// decoded instructions.
func walk(t *testing.T, b *classfiletest.Builder, code []byte) []classfile.Instruction {
	t.Helper()

	b.Method("m", "()V", code)

	cf, err := classfile.Parse(b.Bytes())
	require.NoError(t, err)

	var out []classfile.Instruction

	err = classfile.WalkCode(cf, cf.Methods[0].Code, func(insn classfile.Instruction) error {
		out = append(out, insn)

		return nil
	})
	require.NoError(t, err)

	return out
}

func TestWalkCode_NormalizesShortcuts(t *testing.T) {
	t.Parallel()

	code := classfiletest.NewAsm().
		Op(0x1b).                    // iload_1
		Op(0x3d).                    // istore_2
		Op(0x4e).                    // astore_3
		Var(classfile.DSTORE, 7).    // dstore 7
		WideVar(classfile.LSTORE, 300).
		Op(classfile.RETURN).
		Bytes()

	insns := walk(t, classfiletest.NewClass("com/example/Vars"), code)
	require.Len(t, insns, 6)

	assert.Equal(t, classfile.ILOAD, insns[0].Opcode)
	assert.Equal(t, 1, insns[0].Var)
	assert.Equal(t, classfile.ISTORE, insns[1].Opcode)
	assert.Equal(t, 2, insns[1].Var)
	assert.Equal(t, classfile.ASTORE, insns[2].Opcode)
	assert.Equal(t, 3, insns[2].Var)
	assert.Equal(t, classfile.DSTORE, insns[3].Opcode)
	assert.Equal(t, 7, insns[3].Var)
	assert.Equal(t, classfile.LSTORE, insns[4].Opcode)
	assert.Equal(t, 300, insns[4].Var)
	assert.Equal(t, classfile.KindSimple, insns[5].Kind)
}

func TestWalkCode_Iinc(t *testing.T) {
	t.Parallel()

	code := classfiletest.NewAsm().Iinc(1, -1).WideIinc(400, 1000).Bytes()

	insns := walk(t, classfiletest.NewClass("com/example/Loop"), code)
	require.Len(t, insns, 2)

	assert.Equal(t, classfile.KindIinc, insns[0].Kind)
	assert.Equal(t, -1, insns[0].Increment)
	assert.Equal(t, classfile.KindIinc, insns[1].Kind)
	assert.Equal(t, 400, insns[1].Var)
	assert.Equal(t, 1000, insns[1].Increment)
}

func TestWalkCode_ResolvesReferences(t *testing.T) {
	t.Parallel()

	b := classfiletest.NewClass("com/example/Calls")
	printLine := b.MethodRef("java/io/PrintStream", "println", "(Ljava/lang/String;)V")
	size := b.InterfaceMethodRef("java/util/List", "size", "()I")
	out := b.FieldRef("java/lang/System", "out", "Ljava/io/PrintStream;")
	lambda := b.InvokeDynamic("run", "()Ljava/lang/Runnable;")
	list := b.Class("java/util/ArrayList")

	code := classfiletest.NewAsm().
		Ref(classfile.GETSTATIC, out).
		Ref(classfile.INVOKEVIRTUAL, printLine).
		InvokeInterface(size, 1).
		InvokeDynamic(lambda).
		Ref(classfile.NEW, list).
		Bytes()

	insns := walk(t, b, code)
	require.Len(t, insns, 5)

	assert.Equal(t, classfile.KindField, insns[0].Kind)
	assert.Equal(t, "java/lang/System", insns[0].Owner)

	assert.Equal(t, classfile.KindMethod, insns[1].Kind)
	assert.Equal(t, "println", insns[1].Name)
	assert.Equal(t, "(Ljava/lang/String;)V", insns[1].Descriptor)

	assert.Equal(t, classfile.INVOKEINTERFACE, insns[2].Opcode)
	assert.True(t, insns[2].Opcode.IsInvoke())
	assert.False(t, insns[3].Opcode.IsInvoke(), "invokedynamic has its own kind")
	assert.Equal(t, "java/util/List", insns[2].Owner)

	assert.Equal(t, classfile.KindInvokeDynamic, insns[3].Kind)
	assert.Equal(t, "run", insns[3].Name)

	assert.Equal(t, classfile.KindType, insns[4].Kind)
	assert.Equal(t, "java/util/ArrayList", insns[4].Owner)
}

func TestWalkCode_JumpsAndSwitches(t *testing.T) {
	t.Parallel()

	code := classfiletest.NewAsm().
		Op(classfile.NOP).                    // 0
		Jump(classfile.IFEQ, 10).             // 1
		Jump(classfile.GOTO, -4).             // 4
		JumpW(classfile.GOTO_W, 8).           // 7
		TableSwitch(1, 3).                    // 12
		LookupSwitch(10, 20, 30, 40, 50).     // after table
		Op(classfile.RETURN).
		Bytes()

	insns := walk(t, classfiletest.NewClass("com/example/Branches"), code)
	require.Len(t, insns, 7)

	assert.Equal(t, classfile.IFEQ, insns[1].Opcode)
	assert.Equal(t, 11, insns[1].Jump)
	assert.Equal(t, classfile.GOTO, insns[2].Opcode)
	assert.Equal(t, 0, insns[2].Jump)
	assert.Equal(t, classfile.GOTO, insns[3].Opcode, "goto_w is reported as goto")
	assert.Equal(t, 15, insns[3].Jump)

	assert.Equal(t, classfile.KindTableSwitch, insns[4].Kind)
	assert.Equal(t, 3, insns[4].Targets)
	assert.Equal(t, classfile.KindLookupSwitch, insns[5].Kind)
	assert.Equal(t, 5, insns[5].Targets)
	assert.Equal(t, classfile.RETURN, insns[6].Opcode)
}

func TestWalkCode_Errors(t *testing.T) {
	t.Parallel()

	t.Run("reserved_opcode", func(t *testing.T) {
		t.Parallel()

		b := classfiletest.NewClass("com/example/Bad")
		b.Method("m", "()V", []byte{0xca})

		cf, err := classfile.Parse(b.Bytes())
		require.NoError(t, err)

		err = classfile.WalkCode(cf, cf.Methods[0].Code, func(classfile.Instruction) error { return nil })
		require.ErrorIs(t, err, classfile.ErrBadOpcode)
	})

	t.Run("truncated_operand", func(t *testing.T) {
		t.Parallel()

		b := classfiletest.NewClass("com/example/Short")
		b.Method("m", "()V", []byte{byte(classfile.SIPUSH), 0x01})

		cf, err := classfile.Parse(b.Bytes())
		require.NoError(t, err)

		err = classfile.WalkCode(cf, cf.Methods[0].Code, func(classfile.Instruction) error { return nil })
		require.ErrorIs(t, err, classfile.ErrTruncated)
	})

	t.Run("visitor_error_stops_walk", func(t *testing.T) {
		t.Parallel()

		stop := errors.New("stop")
		b := classfiletest.NewClass("com/example/Stop")
		b.Method("m", "()V", []byte{byte(classfile.NOP), byte(classfile.NOP)})

		cf, err := classfile.Parse(b.Bytes())
		require.NoError(t, err)

		calls := 0
		err = classfile.WalkCode(cf, cf.Methods[0].Code, func(classfile.Instruction) error {
			calls++

			return stop
		})
		require.ErrorIs(t, err, stop)
		assert.Equal(t, 1, calls)
	})
}
