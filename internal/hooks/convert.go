package hooks

import (
	"encoding/json"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

const maxTableDepth = 64

// toLua converts a JSON-shaped Go value into a Lua value. nil becomes an
// empty table so scripts can append to list fields that were empty.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return L.NewTable()
	case bool:
		return lua.LBool(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		t := L.CreateTable(len(val), 0)
		for i, item := range val {
			t.RawSetInt(i+1, toLua(L, item))
		}
		return t
	case map[string]any:
		t := L.CreateTable(0, len(val))
		for k, item := range val {
			t.RawSetString(k, toLua(L, item))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(val))
	}
}

// fromLua converts a Lua value back into a JSON-shaped Go value. Tables with
// a positive length are arrays; other non-empty tables are objects; empty
// tables become nil so they decode into either shape.
func fromLua(v lua.LValue, depth int) (any, error) {
	if depth > maxTableDepth {
		return nil, fmt.Errorf("ctx nesting exceeds %d levels", maxTableDepth)
	}
	switch val := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(val), nil
	case lua.LNumber:
		return float64(val), nil
	case lua.LString:
		return string(val), nil
	case *lua.LTable:
		if n := val.MaxN(); n > 0 {
			arr := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				item, err := fromLua(val.RawGetInt(i), depth+1)
				if err != nil {
					return nil, err
				}
				arr = append(arr, item)
			}
			return arr, nil
		}
		obj := make(map[string]any)
		var convErr error
		val.ForEach(func(k, item lua.LValue) {
			if convErr != nil {
				return
			}
			got, err := fromLua(item, depth+1)
			if err != nil {
				convErr = err
				return
			}
			obj[k.String()] = got
		})
		if convErr != nil {
			return nil, convErr
		}
		if len(obj) == 0 {
			return nil, nil
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported %s value in ctx", v.Type())
	}
}

// encode serializes v through JSON into a Lua value.
func encode(L *lua.LState, v any) (lua.LValue, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return toLua(L, generic), nil
}

// decode deserializes a Lua value into out through JSON.
func decode(v lua.LValue, out any) error {
	generic, err := fromLua(v, 0)
	if err != nil {
		return err
	}
	data, err := json.Marshal(generic)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
