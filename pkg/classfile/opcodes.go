package classfile

// Opcode is a JVM instruction opcode.
type Opcode uint8

// Opcodes referenced by the decoder and by metric counters.
// Shortcut forms (ISTORE_0 and friends) never leave the decoder: they are
// reported as their indexed form with Instruction.Var set.
const (
	NOP             Opcode = 0x00
	ACONST_NULL     Opcode = 0x01
	ICONST_0        Opcode = 0x03
	DCONST_1        Opcode = 0x0f
	BIPUSH          Opcode = 0x10
	SIPUSH          Opcode = 0x11
	LDC             Opcode = 0x12
	LDC_W           Opcode = 0x13
	LDC2_W          Opcode = 0x14
	ILOAD           Opcode = 0x15
	LLOAD           Opcode = 0x16
	FLOAD           Opcode = 0x17
	DLOAD           Opcode = 0x18
	ALOAD           Opcode = 0x19
	ILOAD_0         Opcode = 0x1a
	ALOAD_3         Opcode = 0x2d
	IALOAD          Opcode = 0x2e
	SALOAD          Opcode = 0x35
	ISTORE          Opcode = 0x36
	LSTORE          Opcode = 0x37
	FSTORE          Opcode = 0x38
	DSTORE          Opcode = 0x39
	ASTORE          Opcode = 0x3a
	ISTORE_0        Opcode = 0x3b
	ASTORE_3        Opcode = 0x4e
	IASTORE         Opcode = 0x4f
	SASTORE         Opcode = 0x56
	POP             Opcode = 0x57
	DUP             Opcode = 0x59
	LXOR            Opcode = 0x83
	IINC            Opcode = 0x84
	I2L             Opcode = 0x85
	DCMPG           Opcode = 0x98
	IFEQ            Opcode = 0x99
	IFNE            Opcode = 0x9a
	IFLT            Opcode = 0x9b
	IFGE            Opcode = 0x9c
	IFGT            Opcode = 0x9d
	IFLE            Opcode = 0x9e
	IF_ICMPEQ       Opcode = 0x9f
	IF_ICMPNE       Opcode = 0xa0
	IF_ICMPLT       Opcode = 0xa1
	IF_ICMPGE       Opcode = 0xa2
	IF_ICMPGT       Opcode = 0xa3
	IF_ICMPLE       Opcode = 0xa4
	IF_ACMPEQ       Opcode = 0xa5
	IF_ACMPNE       Opcode = 0xa6
	GOTO            Opcode = 0xa7
	JSR             Opcode = 0xa8
	RET             Opcode = 0xa9
	TABLESWITCH     Opcode = 0xaa
	LOOKUPSWITCH    Opcode = 0xab
	IRETURN         Opcode = 0xac
	RETURN          Opcode = 0xb1
	GETSTATIC       Opcode = 0xb2
	PUTSTATIC       Opcode = 0xb3
	GETFIELD        Opcode = 0xb4
	PUTFIELD        Opcode = 0xb5
	INVOKEVIRTUAL   Opcode = 0xb6
	INVOKESPECIAL   Opcode = 0xb7
	INVOKESTATIC    Opcode = 0xb8
	INVOKEINTERFACE Opcode = 0xb9
	INVOKEDYNAMIC   Opcode = 0xba
	NEW             Opcode = 0xbb
	NEWARRAY        Opcode = 0xbc
	ANEWARRAY       Opcode = 0xbd
	ARRAYLENGTH     Opcode = 0xbe
	ATHROW          Opcode = 0xbf
	CHECKCAST       Opcode = 0xc0
	INSTANCEOF      Opcode = 0xc1
	MONITORENTER    Opcode = 0xc2
	MONITOREXIT     Opcode = 0xc3
	WIDE            Opcode = 0xc4
	MULTIANEWARRAY  Opcode = 0xc5
	IFNULL          Opcode = 0xc6
	IFNONNULL       Opcode = 0xc7
	GOTO_W          Opcode = 0xc8
	JSR_W           Opcode = 0xc9
)

// Kind groups instructions by operand shape.
type Kind uint8

// Instruction kinds.
const (
	KindSimple Kind = iota
	KindInt
	KindVar
	KindIinc
	KindLdc
	KindField
	KindMethod
	KindInvokeDynamic
	KindType
	KindMultiANewArray
	KindJump
	KindTableSwitch
	KindLookupSwitch
)

// IsStore reports whether op stores a local variable slot (indexed form).
func (op Opcode) IsStore() bool {
	return op >= ISTORE && op <= ASTORE
}

// IsInvoke reports whether op is one of the four method invocation opcodes.
func (op Opcode) IsInvoke() bool {
	return op >= INVOKEVIRTUAL && op <= INVOKEINTERFACE
}
