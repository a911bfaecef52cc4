package vm

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Compiled function encoding (.slatec)
// ---------------------------------------------------------------------------

// The compiled form caches compilation only. It is tied to the opcode
// numbering of the VM that wrote it and is rejected on a version mismatch.
const (
	compiledMagic   = "slatec"
	compiledVersion = 2
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type wireFile struct {
	Magic    string        `cbor:"1,keyasint"`
	Version  int           `cbor:"2,keyasint"`
	Function *wireFunction `cbor:"3,keyasint"`
}

type wireFunction struct {
	Name       string         `cbor:"1,keyasint,omitempty"`
	Path       string         `cbor:"2,keyasint,omitempty"`
	Code       []byte         `cbor:"3,keyasint"`
	Constants  []wireConstant `cbor:"4,keyasint,omitempty"`
	Params     []string       `cbor:"5,keyasint,omitempty"`
	LocalCount int            `cbor:"6,keyasint,omitempty"`
	Upvalues   []wireUpvalue  `cbor:"7,keyasint,omitempty"`
	Debug      []wireDebug    `cbor:"8,keyasint,omitempty"`
	Lines      []string       `cbor:"9,keyasint,omitempty"`
}

type wireConstant struct {
	Kind  Kind          `cbor:"1,keyasint"`
	Int   int64         `cbor:"2,keyasint,omitempty"`
	Float float64       `cbor:"3,keyasint,omitempty"`
	Text  string        `cbor:"4,keyasint,omitempty"`
	Fn    *wireFunction `cbor:"5,keyasint,omitempty"`
}

type wireUpvalue struct {
	IsLocal bool   `cbor:"1,keyasint,omitempty"`
	Index   uint8  `cbor:"2,keyasint"`
	Name    string `cbor:"3,keyasint,omitempty"`
}

// wireDebug refers to its source line by index into wireFunction.Lines.
type wireDebug struct {
	Offset int `cbor:"1,keyasint"`
	Line   int `cbor:"2,keyasint"`
	Column int `cbor:"3,keyasint"`
	Source int `cbor:"4,keyasint"`
}

// MarshalFunction serializes a compiled top-level function to CBOR.
func MarshalFunction(fn *Function) ([]byte, error) {
	w, err := encodeFunction(fn)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(&wireFile{Magic: compiledMagic, Version: compiledVersion, Function: w})
}

// UnmarshalFunction decodes a function written by MarshalFunction.
func UnmarshalFunction(data []byte) (*Function, error) {
	var f wireFile
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("vm: unmarshal function: %w", err)
	}
	if f.Magic != compiledMagic {
		return nil, fmt.Errorf("vm: not a compiled slate file")
	}
	if f.Version != compiledVersion {
		return nil, fmt.Errorf("vm: compiled file version %d, want %d", f.Version, compiledVersion)
	}
	if f.Function == nil {
		return nil, fmt.Errorf("vm: compiled file has no function")
	}
	return decodeFunction(f.Function)
}

func encodeFunction(fn *Function) (*wireFunction, error) {
	w := &wireFunction{
		Name:       fn.Name,
		Path:       fn.Path,
		Code:       fn.Code,
		Params:     fn.Params,
		LocalCount: fn.LocalCount,
	}
	for _, c := range fn.Constants {
		wc, err := encodeConstant(c)
		if err != nil {
			return nil, fmt.Errorf("vm: function %s: %w", fn.DisplayName(), err)
		}
		w.Constants = append(w.Constants, wc)
	}
	for _, u := range fn.Upvalues {
		w.Upvalues = append(w.Upvalues, wireUpvalue{IsLocal: u.IsLocal, Index: u.Index, Name: u.Name})
	}
	lines := make(map[string]int)
	for _, e := range fn.Debug {
		if e.Location == nil {
			continue
		}
		src, ok := lines[e.Location.SourceLine]
		if !ok {
			src = len(w.Lines)
			lines[e.Location.SourceLine] = src
			w.Lines = append(w.Lines, e.Location.SourceLine)
		}
		w.Debug = append(w.Debug, wireDebug{
			Offset: e.Offset,
			Line:   e.Location.Line,
			Column: e.Location.Column,
			Source: src,
		})
	}
	return w, nil
}

func encodeConstant(v Value) (wireConstant, error) {
	c := wireConstant{Kind: v.kind}
	switch v.kind {
	case KindNull:
	case KindBoolean:
		if v.Bool() {
			c.Int = 1
		}
	case KindInt32:
		c.Int = int64(v.Int32())
	case KindBigInt:
		c.Text = v.AsBigInt().n.String()
	case KindFloat32:
		c.Float = float64(v.Float32())
	case KindFloat64:
		c.Float = v.Float64()
	case KindString:
		c.Text = v.AsString().s
	case KindFunction:
		fn, err := encodeFunction(v.AsFunction())
		if err != nil {
			return c, err
		}
		c.Fn = fn
	default:
		return c, fmt.Errorf("constant of kind %s cannot be encoded", v.kind)
	}
	return c, nil
}

func decodeFunction(w *wireFunction) (*Function, error) {
	fn := &Function{
		Name:       w.Name,
		Path:       w.Path,
		Code:       w.Code,
		Params:     w.Params,
		LocalCount: w.LocalCount,
	}
	for _, wc := range w.Constants {
		v, err := decodeConstant(wc)
		if err != nil {
			return nil, fmt.Errorf("vm: function %s: %w", fn.DisplayName(), err)
		}
		v.Retain()
		fn.Constants = append(fn.Constants, v)
	}
	for _, u := range w.Upvalues {
		fn.Upvalues = append(fn.Upvalues, UpvalueDescriptor{IsLocal: u.IsLocal, Index: u.Index, Name: u.Name})
	}
	for _, d := range w.Debug {
		if d.Source < 0 || d.Source >= len(w.Lines) {
			return nil, fmt.Errorf("vm: function %s: debug entry refers to missing line %d", fn.DisplayName(), d.Source)
		}
		fn.Debug = append(fn.Debug, DebugEntry{
			Offset:   d.Offset,
			Location: &DebugLocation{File: w.Path, Line: d.Line, Column: d.Column, SourceLine: w.Lines[d.Source]},
		})
	}
	return fn, nil
}

func decodeConstant(c wireConstant) (Value, error) {
	switch c.Kind {
	case KindNull:
		return Null, nil
	case KindBoolean:
		return FromBool(c.Int != 0), nil
	case KindInt32:
		return FromInt32(int32(c.Int)), nil
	case KindBigInt:
		n, ok := new(big.Int).SetString(c.Text, 10)
		if !ok {
			return Undefined, fmt.Errorf("invalid bigint constant %q", c.Text)
		}
		return FromBigInt(n), nil
	case KindFloat32:
		return FromFloat32(float32(c.Float)), nil
	case KindFloat64:
		return FromFloat64(c.Float), nil
	case KindString:
		return FromString(c.Text), nil
	case KindFunction:
		if c.Fn == nil {
			return Undefined, fmt.Errorf("function constant has no body")
		}
		fn, err := decodeFunction(c.Fn)
		if err != nil {
			return Undefined, err
		}
		return fnValue(fn), nil
	}
	return Undefined, fmt.Errorf("constant of kind %s cannot be decoded", c.Kind)
}
