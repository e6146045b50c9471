package classfile

import "fmt"

// Instruction is one decoded bytecode instruction. Only the fields that
// apply to Kind are set.
type Instruction struct {
	Offset int
	Opcode Opcode
	Kind   Kind

	// Var is the local variable slot of load/store/ret/iinc.
	Var int
	// Increment is the constant added by iinc.
	Increment int
	// Operand is the immediate of bipush/sipush/newarray and the dimension
	// count of multianewarray.
	Operand int

	// Owner is the class of a field or method reference, or the type of a
	// type instruction.
	Owner      string
	Name       string
	Descriptor string

	// Jump is the absolute target of a jump instruction.
	Jump int
	// Targets is the number of case labels of a switch, default excluded.
	Targets int
}

// Visitor is called for every instruction of a method body. Returning an
// error stops the walk and is returned by WalkCode.
type Visitor func(Instruction) error

// xLOAD_0 .. xSTORE_3 are laid out in blocks of four per type.
const shortcutSlots = 4

// WalkCode decodes code, the bytecode of a method of cf, and calls visit for
// each instruction in order.
func WalkCode(cf *ClassFile, code []byte, visit Visitor) error {
	r := &reader{buf: code}

	for r.off < len(code) {
		insn, err := decode(cf, r)
		if err != nil {
			return err
		}

		err = visit(insn)
		if err != nil {
			return err
		}
	}

	return nil
}

//nolint:gocyclo,cyclop,funlen // opcode dispatch table
func decode(cf *ClassFile, r *reader) (Instruction, error) {
	start := r.off
	op := Opcode(r.u1())
	insn := Instruction{Offset: start, Opcode: op}

	switch {
	case op <= DCONST_1:
	case op == BIPUSH:
		insn.Kind = KindInt
		insn.Operand = int(int8(r.u1())) //nolint:gosec // signed immediate
	case op == SIPUSH:
		insn.Kind = KindInt
		insn.Operand = int(int16(r.u2())) //nolint:gosec // signed immediate
	case op == LDC:
		insn.Kind = KindLdc
		r.u1()
	case op == LDC_W || op == LDC2_W:
		insn.Kind = KindLdc
		r.u2()
	case op >= ILOAD && op <= ALOAD, op >= ISTORE && op <= ASTORE, op == RET:
		insn.Kind = KindVar
		insn.Var = int(r.u1())
	case op >= ILOAD_0 && op <= ALOAD_3:
		insn.Kind = KindVar
		insn.Opcode = ILOAD + (op-ILOAD_0)/shortcutSlots
		insn.Var = int(op-ILOAD_0) % shortcutSlots
	case op >= ISTORE_0 && op <= ASTORE_3:
		insn.Kind = KindVar
		insn.Opcode = ISTORE + (op-ISTORE_0)/shortcutSlots
		insn.Var = int(op-ISTORE_0) % shortcutSlots
	case op >= IALOAD && op <= SALOAD, op >= IASTORE && op <= LXOR, op >= I2L && op <= DCMPG:
	case op == IINC:
		insn.Kind = KindIinc
		insn.Var = int(r.u1())
		insn.Increment = int(int8(r.u1())) //nolint:gosec // signed immediate
	case op >= IFEQ && op <= JSR, op == IFNULL || op == IFNONNULL:
		insn.Kind = KindJump
		insn.Jump = start + int(int16(r.u2())) //nolint:gosec // signed offset
	case op == GOTO_W || op == JSR_W:
		insn.Kind = KindJump
		insn.Opcode = GOTO + (op - GOTO_W)
		insn.Jump = start + int(r.s4())
	case op == TABLESWITCH:
		return decodeTableSwitch(r, insn)
	case op == LOOKUPSWITCH:
		return decodeLookupSwitch(r, insn)
	case op >= IRETURN && op <= RETURN:
	case op >= GETSTATIC && op <= PUTFIELD:
		insn.Kind = KindField

		return resolveMember(cf, r, insn)
	case op.IsInvoke():
		insn.Kind = KindMethod

		insn, err := resolveMember(cf, r, insn)
		if op == INVOKEINTERFACE {
			r.skip(2) // count, 0
		}

		return insn, firstErr(r.err, err)
	case op == INVOKEDYNAMIC:
		return decodeInvokeDynamic(cf, r, insn)
	case op == NEW || op == ANEWARRAY || op == CHECKCAST || op == INSTANCEOF:
		insn.Kind = KindType

		return resolveType(cf, r, insn)
	case op == NEWARRAY:
		insn.Kind = KindInt
		insn.Operand = int(r.u1())
	case op == ARRAYLENGTH || op == ATHROW || op == MONITORENTER || op == MONITOREXIT:
	case op == WIDE:
		return decodeWide(r, insn)
	case op == MULTIANEWARRAY:
		insn.Kind = KindMultiANewArray

		insn, err := resolveType(cf, r, insn)
		insn.Operand = int(r.u1())

		return insn, firstErr(r.err, err)
	default:
		return insn, fmt.Errorf("%w: 0x%02x at offset %d", ErrBadOpcode, uint8(op), start)
	}

	return insn, r.err
}

func decodeWide(r *reader, insn Instruction) (Instruction, error) {
	op := Opcode(r.u1())

	switch {
	case op >= ILOAD && op <= ALOAD, op >= ISTORE && op <= ASTORE, op == RET:
		insn.Opcode = op
		insn.Kind = KindVar
		insn.Var = int(r.u2())
	case op == IINC:
		insn.Opcode = op
		insn.Kind = KindIinc
		insn.Var = int(r.u2())
		insn.Increment = int(int16(r.u2())) //nolint:gosec // signed immediate
	default:
		if r.err != nil {
			return insn, r.err
		}

		return insn, fmt.Errorf("%w: wide 0x%02x at offset %d", ErrBadOpcode, uint8(op), insn.Offset)
	}

	return insn, r.err
}

// switchPadding skips to the next four-byte boundary relative to the start
// of the code array.
func switchPadding(r *reader) {
	r.skip((4 - r.off%4) % 4)
}

func decodeTableSwitch(r *reader, insn Instruction) (Instruction, error) {
	insn.Kind = KindTableSwitch

	switchPadding(r)
	insn.Jump = insn.Offset + int(r.s4())
	low := int(r.s4())
	high := int(r.s4())

	if r.err != nil {
		return insn, r.err
	}

	if high < low {
		return insn, fmt.Errorf("%w: tableswitch high %d < low %d at offset %d", ErrBadOpcode, high, low, insn.Offset)
	}

	insn.Targets = high - low + 1
	r.skip(insn.Targets * 4)

	return insn, r.err
}

func decodeLookupSwitch(r *reader, insn Instruction) (Instruction, error) {
	insn.Kind = KindLookupSwitch

	switchPadding(r)
	insn.Jump = insn.Offset + int(r.s4())
	pairs := int(r.s4())

	if r.err != nil {
		return insn, r.err
	}

	if pairs < 0 {
		return insn, fmt.Errorf("%w: lookupswitch npairs %d at offset %d", ErrBadOpcode, pairs, insn.Offset)
	}

	insn.Targets = pairs
	r.skip(pairs * 8)

	return insn, r.err
}

func resolveMember(cf *ClassFile, r *reader, insn Instruction) (Instruction, error) {
	idx := r.u2()
	if r.err != nil {
		return insn, r.err
	}

	owner, name, desc, err := cf.pool.memberRef(idx)
	if err != nil {
		return insn, err
	}

	insn.Owner, insn.Name, insn.Descriptor = owner, name, desc

	return insn, nil
}

func resolveType(cf *ClassFile, r *reader, insn Instruction) (Instruction, error) {
	idx := r.u2()
	if r.err != nil {
		return insn, r.err
	}

	name, err := cf.pool.className(idx)
	if err != nil {
		return insn, err
	}

	insn.Owner = name

	return insn, nil
}

func decodeInvokeDynamic(cf *ClassFile, r *reader, insn Instruction) (Instruction, error) {
	insn.Kind = KindInvokeDynamic

	idx := r.u2()
	r.skip(2) // 0, 0

	if r.err != nil {
		return insn, r.err
	}

	name, desc, err := cf.pool.invokeDynamic(idx)
	if err != nil {
		return insn, err
	}

	insn.Name, insn.Descriptor = name, desc

	return insn, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}
