package data

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSignalAllocateAndRelease(t *testing.T) {
	d, err := New(Type1DFloat, 100, 0, 0, SourceFloat32, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, d.Size())
	assert.Equal(t, 1, d.Height())

	d.Free()
	assert.Equal(t, 100, d.Size())

	_, err = d.At(0, 0)
	assert.ErrorIs(t, err, ErrFreed)
}

func TestNewInvalidArguments(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		width   int
		height  int
		stride  int
		source  Source
		raw     []byte
		wantErr error
	}{
		{"zero width", Type2DFloat, 0, 4, 0, SourceUint8, nil, ErrInvalidDimensions},
		{"negative height", Type2DFloat, 4, -1, 0, SourceUint8, nil, ErrInvalidDimensions},
		{"stride below row", Type2DFloat, 4, 4, 3, SourceUint8, nil, ErrInvalidDimensions},
		{"misaligned stride", Type2DFloat, 4, 4, 9, SourceUint16, nil, ErrInvalidDimensions},
		{"short buffer", Type2DFloat, 4, 4, 0, SourceUint8, make([]byte, 15), ErrInvalidDimensions},
		{"unknown type", Type(42), 4, 4, 0, SourceUint8, nil, ErrInvalidArgument},
		{"unknown source", Type2DFloat, 4, 4, 0, Source(9), nil, ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.typ, tt.width, tt.height, tt.stride, tt.source, tt.raw)
			assert.Nil(t, d)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewRespectsSourceStride(t *testing.T) {
	// 3x2 uint8 image with two bytes of row padding
	raw := []byte{
		1, 2, 3, 0xff, 0xff,
		4, 5, 6, 0xff, 0xff,
	}
	d, err := New(Type2DFloat, 3, 2, 5, SourceUint8, raw)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, d.Values())
	assert.Equal(t, 5, d.Stride())
	assert.Equal(t, 10, d.Bytes())
}

func TestNewDecodesElementTypes(t *testing.T) {
	u16 := make([]byte, 4)
	binary.LittleEndian.PutUint16(u16, 1000)
	binary.LittleEndian.PutUint16(u16[2:], 65535)
	d, err := New(Type1DFloat, 2, 1, 0, SourceUint16, u16)
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, 65535}, d.Values())

	f32 := make([]byte, 8)
	binary.LittleEndian.PutUint32(f32, math.Float32bits(-1.5))
	binary.LittleEndian.PutUint32(f32[4:], math.Float32bits(2.25))
	d, err = New(Type1DFloat, 2, 1, 0, SourceFloat32, f32)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1.5, 2.25}, d.Values())

	// uint typed contexts clamp what they load
	d, err = New(Type1DUint, 2, 1, 0, SourceFloat32, f32)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2}, d.Values())
}

func TestPointAccess(t *testing.T) {
	d, err := NewFloat(4, 3, []float64{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
	})
	require.NoError(t, err)

	v, err := d.At(2, 1)
	require.NoError(t, err)
	assert.Equal(t, 6.0, v)

	v, err = d.AtOffset(11)
	require.NoError(t, err)
	assert.Equal(t, 11.0, v)

	for _, p := range [][2]int{{-1, 0}, {4, 0}, {0, 3}, {0, -1}} {
		_, err := d.At(p[0], p[1])
		assert.ErrorIs(t, err, ErrOutOfRange, "position %v", p)
	}
	_, err = d.AtOffset(12)
	assert.ErrorIs(t, err, ErrOutOfRange)

	require.NoError(t, d.SetAt(3, 2, -7))
	v, _ = d.At(3, 2)
	assert.Equal(t, -7.0, v)
	assert.ErrorIs(t, d.SetAt(4, 2, 1), ErrOutOfRange)
}

func TestNewFromArea(t *testing.T) {
	values := make([]float64, 8*6)
	for i := range values {
		values[i] = float64(i)
	}
	src, err := NewFloat(8, 6, values)
	require.NoError(t, err)

	area, err := NewFromArea(src, 3, 2, 4, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{28, 29, 30, 36, 37, 38}, area.Values())

	_, err = NewFromArea(src, 5, 2, 4, 3)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = NewFromArea(src, 3, 4, 4, 3)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = NewFromArea(src, 3, 2, -1, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestNewFromSection(t *testing.T) {
	src, err := NewSignal(10, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.NoError(t, err)

	sec, err := NewFromSection(src, 6, 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 7, 8, 9}, sec.Values())
	assert.Equal(t, Type1DFloat, sec.Type())

	_, err = NewFromSection(src, 7, 4)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestCloneIsDeep(t *testing.T) {
	src, err := NewFloat(2, 2, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	c, err := src.Clone()
	require.NoError(t, err)
	c.Values()[0] = 100

	assert.Equal(t, 1.0, src.Values()[0])

	other, _ := NewFloat(3, 1, nil)
	assert.ErrorIs(t, other.CopyFrom(src), ErrDimensionMismatch)
}

func TestExportRoundsAndClamps(t *testing.T) {
	d, err := New(Type2DFloat, 4, 1, 0, SourceUint8, nil)
	require.NoError(t, err)
	copy(d.Values(), []float64{-3, 12.4, 12.6, 300})

	out, err := d.Export(SourceUint8)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 12, 13, 255}, out)

	out, err = d.Export(SourceUint16)
	require.NoError(t, err)
	assert.Equal(t, uint16(300), binary.LittleEndian.Uint16(out[6:]))

	assert.ErrorIs(t, d.ExportTo(make([]byte, 3), SourceUint8), ErrInvalidDimensions)
}

func TestConvert(t *testing.T) {
	d, err := NewFloat(3, 1, []float64{-2, 1.6, 7})
	require.NoError(t, err)

	require.NoError(t, d.Convert(Type2DUint))
	assert.Equal(t, []float64{0, 2, 7}, d.Values())
	assert.True(t, d.Type().IsUint())

	require.NoError(t, d.Convert(Type2DFloat))
	assert.Equal(t, Type2DFloat, d.Type())

	err = d.Convert(Type1DFloat)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestStatusCount(t *testing.T) {
	assert.Equal(t, 7, StatusCount(7, nil))
	assert.Equal(t, 0, Status(nil))
	assert.Equal(t, -2, Status(ErrOutOfRange))
	assert.Equal(t, -5, StatusCount(3, ErrZeroVariance))

	_, err := NewFromSection(&Data{typ: Type1DFloat, width: 1, height: 1, adu: []float64{0}}, 0, 2)
	assert.Equal(t, -2, Status(err))
	assert.Equal(t, -1, Status(errors.New("other")))
}
