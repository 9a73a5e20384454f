// File: pool/typecheck.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/momentics/blockpool/api"
)

// maxPooledAlign is the alignment every block offset satisfies.
const maxPooledAlign = blockAlign

var pooledTypes sync.Map // reflect.Type -> error

// checkPooledType reports whether T may be stored in arena memory: no Go
// pointers anywhere in its layout and alignment within block alignment.
// Results are cached per type.
func checkPooledType[T any]() error {
	t := reflect.TypeFor[T]()
	if v, ok := pooledTypes.Load(t); ok {
		if v == nil {
			return nil
		}
		return v.(error)
	}
	var err error
	switch {
	case t.Align() > maxPooledAlign:
		err = fmt.Errorf("%w: %s alignment %d", api.ErrUnsupportedType, t, t.Align())
	case hasPointers(t):
		err = fmt.Errorf("%w: %s contains pointers", api.ErrUnsupportedType, t)
	}
	if err == nil {
		pooledTypes.Store(t, nil)
	} else {
		pooledTypes.Store(t, err)
	}
	return err
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
