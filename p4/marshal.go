package p4

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
)

// Python marshal type codes emitted and accepted by p4 -G.
const (
	typeInt    = 'i'
	typeNull   = '0'
	typeNone   = 'N'
	typeTrue   = 'T'
	typeFalse  = 'F'
	typeString = 's'
	typeText   = 't'
	typeUnicod = 'u'
	typeList   = '['
	typeTuple  = '('
	typeDict   = '{'
)

func decodeInt(r io.Reader) (int32, error) {
	var i [4]byte
	if _, err := io.ReadFull(r, i[:]); err != nil {
		return 0, unexpected(err)
	}
	return int32(binary.LittleEndian.Uint32(i[:])), nil
}

// unexpected turns a clean EOF in the middle of a value into
// io.ErrUnexpectedEOF.
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func minLen(l int32, limit int) int {
	if int(l) < limit {
		return int(l)
	}
	return limit
}

// NoneObject is the decoded form of None and of the dict terminator.
var NoneObject interface{}

func init() {
	l := 1
	NoneObject = &l
}

// Decode reads one marshaled value. It returns io.EOF only when r is
// exhausted before the type byte.
func Decode(r io.Reader) (interface{}, error) {
	var t [1]byte
	if _, err := io.ReadFull(r, t[:]); err != nil {
		return nil, err
	}

	switch t[0] {
	case typeInt:
		return decodeInt(r)
	case typeNull, typeNone:
		return NoneObject, nil
	case typeList, typeTuple:
		l, err := decodeInt(r)
		if err != nil {
			return nil, err
		}
		if l < 0 {
			return nil, fmt.Errorf("negative list length %d", l)
		}
		// The length is untrusted; grow as elements arrive.
		dest := make([]interface{}, 0, minLen(l, 64))
		for i := 0; i < int(l); i++ {
			v, err := Decode(r)
			if err != nil {
				return nil, unexpected(err)
			}
			dest = append(dest, v)
		}
		return dest, nil
	case typeDict:
		dest := make(map[interface{}]interface{})
		for {
			k, err := Decode(r)
			if err != nil {
				return nil, unexpected(err)
			}
			if k == NoneObject {
				return dest, nil
			}
			v, err := Decode(r)
			if err != nil {
				return nil, unexpected(err)
			}
			dest[k] = v
		}
	case typeString, typeUnicod, typeText:
		l, err := decodeInt(r)
		if err != nil {
			return nil, err
		}
		if l < 0 {
			return nil, fmt.Errorf("negative string length %d", l)
		}
		var s bytes.Buffer
		s.Grow(minLen(l, 4096))
		if _, err := io.CopyN(&s, r, int64(l)); err != nil {
			return nil, unexpected(err)
		}
		return s.String(), nil
	case typeTrue:
		return true, nil
	case typeFalse:
		return false, nil
	}

	return nil, fmt.Errorf("unsupported type code %c", t[0])
}

func encodeInt(w io.Writer, i int32) error {
	var b [5]byte
	b[0] = typeInt
	binary.LittleEndian.PutUint32(b[1:], uint32(i))
	_, err := w.Write(b[:])
	return err
}

func encodeString(w io.Writer, s string) error {
	var b [5]byte
	b[0] = typeString
	binary.LittleEndian.PutUint32(b[1:], uint32(len(s)))
	if _, err := w.Write(b[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func encodeInt64(w io.Writer, i int64) error {
	if i < math.MinInt32 || i > math.MaxInt32 {
		return encodeString(w, strconv.FormatInt(i, 10))
	}
	return encodeInt(w, int32(i))
}

func encodeList(w io.Writer, l []interface{}) error {
	var b [5]byte
	b[0] = typeList
	binary.LittleEndian.PutUint32(b[1:], uint32(len(l)))
	if _, err := w.Write(b[:]); err != nil {
		return err
	}
	for _, v := range l {
		if err := Encode(w, v); err != nil {
			return err
		}
	}
	return nil
}

func encodeDict(w io.Writer, keys []string, get func(string) interface{}) error {
	sort.Strings(keys)
	if _, err := w.Write([]byte{typeDict}); err != nil {
		return err
	}
	for _, k := range keys {
		if err := encodeString(w, k); err != nil {
			return err
		}
		if err := Encode(w, get(k)); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte{typeNull})
	return err
}

// Encode writes v in the marshal format p4 -G reads on stdin. Dict
// keys are written in sorted order.
func Encode(w io.Writer, v interface{}) error {
	switch x := v.(type) {
	case nil:
		_, err := w.Write([]byte{typeNone})
		return err
	case bool:
		c := byte(typeFalse)
		if x {
			c = typeTrue
		}
		_, err := w.Write([]byte{c})
		return err
	case int32:
		return encodeInt(w, x)
	case int:
		return encodeInt64(w, int64(x))
	case int64:
		return encodeInt64(w, x)
	case string:
		return encodeString(w, x)
	case []byte:
		return encodeString(w, string(x))
	case []string:
		l := make([]interface{}, len(x))
		for i, s := range x {
			l[i] = s
		}
		return encodeList(w, l)
	case []interface{}:
		return encodeList(w, x)
	case map[string]string:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		return encodeDict(w, keys, func(k string) interface{} { return x[k] })
	case Record:
		return Encode(w, map[string]string(x))
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		return encodeDict(w, keys, func(k string) interface{} { return x[k] })
	}
	return fmt.Errorf("cannot marshal %T", v)
}
