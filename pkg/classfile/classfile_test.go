package classfile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/jarfang/pkg/classfile"
	"github.com/Sumatoshi-tech/jarfang/pkg/classfile/classfiletest"
)

func TestParse_Header(t *testing.T) {
	t.Parallel()

	b := classfiletest.NewClass("com/example/Service").
		Super("com/example/Base").
		Implements("java/lang/Runnable", "java/io/Closeable").
		Field("count", "I").
		Field("name", "Ljava/lang/String;").
		Method("run", "()V", classfiletest.NewAsm().Op(classfile.RETURN).Bytes()).
		AbstractMethod("close", "()V")

	cf, err := classfile.Parse(b.Bytes())
	require.NoError(t, err)

	assert.Equal(t, uint16(classfiletest.DefaultMajorVersion), cf.MajorVersion)
	assert.Equal(t, "com/example/Service", cf.ThisClass)
	assert.Equal(t, "com/example/Base", cf.SuperClass)
	assert.Equal(t, []string{"java/lang/Runnable", "java/io/Closeable"}, cf.Interfaces)
	assert.False(t, cf.IsInterface())

	require.Len(t, cf.Fields, 2)
	assert.Equal(t, "count", cf.Fields[0].Name)
	assert.Equal(t, "Ljava/lang/String;", cf.Fields[1].Descriptor)

	require.Len(t, cf.Methods, 2)
	assert.Equal(t, "run", cf.Methods[0].Name)
	assert.Equal(t, []byte{byte(classfile.RETURN)}, cf.Methods[0].Code)
	assert.Nil(t, cf.Methods[1].Code)
}

func TestParse_InterfaceAndNoSuper(t *testing.T) {
	t.Parallel()

	iface, err := classfile.Parse(classfiletest.NewInterface("com/example/Api").Bytes())
	require.NoError(t, err)
	assert.True(t, iface.IsInterface())
	assert.Equal(t, "java/lang/Object", iface.SuperClass)

	root, err := classfile.Parse(classfiletest.NewClass("java/lang/Object").Super("").Bytes())
	require.NoError(t, err)
	assert.Empty(t, root.SuperClass)
}

func TestParse_LongConstantTakesTwoSlots(t *testing.T) {
	t.Parallel()

	b := classfiletest.NewClass("com/example/Longs")
	b.Long(42)
	b.Field("after", "J")

	cf, err := classfile.Parse(b.Bytes())
	require.NoError(t, err)
	require.Len(t, cf.Fields, 1)
	assert.Equal(t, "after", cf.Fields[0].Name)
}

func TestParse_ModifiedUTF8(t *testing.T) {
	t.Parallel()

	// "é" in modified UTF-8 is the same two bytes as in standard UTF-8.
	cf, err := classfile.Parse(classfiletest.NewClass("com/example/Café").Bytes())
	require.NoError(t, err)
	assert.Equal(t, "com/example/Café", cf.ThisClass)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	valid := classfiletest.NewClass("com/example/Ok").Bytes()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "empty", data: nil, want: classfile.ErrTruncated},
		{name: "bad_magic", data: []byte{0xde, 0xad, 0xbe, 0xef, 0, 0, 0, 65}, want: classfile.ErrBadMagic},
		{name: "truncated_body", data: valid[:len(valid)-3], want: classfile.ErrTruncated},
		{name: "bad_tag", data: []byte{0xca, 0xfe, 0xba, 0xbe, 0, 0, 0, 65, 0, 2, 99}, want: classfile.ErrBadConstantPool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := classfile.Parse(tt.data)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParse_DanglingThisClass(t *testing.T) {
	t.Parallel()

	data := []byte{
		0xca, 0xfe, 0xba, 0xbe, 0, 0, 0, 65,
		0, 2, // pool count: one entry
		classfile.TagUtf8, 0, 1, 'A',
		0, 1, // access
		0, 1, // this_class -> Utf8, not Class
		0, 0,
	}

	_, err := classfile.Parse(data)
	require.ErrorIs(t, err, classfile.ErrBadConstantPool)
}
