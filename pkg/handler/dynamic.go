package handler

import (
	"context"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/scrapectx"
)

// DynamicHandlerName is the handler_name a scraper must use to run a
// user-supplied Lua source string instead of a compiled handler.
const DynamicHandlerName = "dynamic_scraper"

// dynamicParams is the params shape run_ephemeral and scrapers bound to
// DynamicHandlerName decode.
type dynamicParams struct {
	SourceCode string                 `json:"source_code"`
	Kwargs     map[string]interface{} `json:"kwargs"`
}

// dynamicResult carries a Lua evaluation's outcome across the goroutine
// boundary so the caller can still select on ctx/timeout.
type dynamicResult struct {
	val interface{}
	err error
}

// NewDynamicHandler builds the handler backing "dynamic_scraper": the
// source must define a function `handler(ctx, kwargs)`, which is loaded
// into a fresh sandboxed Lua state per invocation and then called with
// a ctx table (exposing the scraper context's fetch helper) and a
// kwargs table built from params.kwargs. A source that errors to load,
// or that doesn't define handler, fails the task; handler's single
// return value becomes the task's result.
func NewDynamicHandler() Handler {
	return func(ctx context.Context, sctx *scrapectx.Context) (interface{}, error) {
		var params dynamicParams
		if err := sctx.DecodeParams(&params); err != nil {
			return nil, err
		}
		if params.SourceCode == "" {
			return nil, model.NewError(model.KindValidationError, "source_code is required", nil)
		}

		L := lua.NewState(lua.Options{SkipOpenLibs: true})
		defer L.Close()
		for _, pair := range []struct {
			n string
			f lua.LGFunction
		}{
			{lua.BaseLibName, lua.OpenBase},
			{lua.TabLibName, lua.OpenTable},
			{lua.StringLibName, lua.OpenString},
			{lua.MathLibName, lua.OpenMath},
		} {
			if err := L.CallByParam(lua.P{Fn: L.NewFunction(pair.f), NRet: 0, Protect: true}, lua.LString(pair.n)); err != nil {
				return nil, model.NewError(model.KindHandlerError, "init lua sandbox", err)
			}
		}
		// A sandboxed state intentionally omits os/io/package/debug: a
		// dynamic scraper must not touch the filesystem or spawn
		// processes on the worker host. The base library's file loaders
		// are removed for the same reason.
		L.SetGlobal("dofile", lua.LNil)
		L.SetGlobal("loadfile", lua.LNil)

		done := make(chan dynamicResult, 1)
		go func() {
			if err := L.DoString(params.SourceCode); err != nil {
				done <- dynamicResult{err: model.NewError(model.KindHandlerError, "lua syntax error", err)}
				return
			}
			fn, ok := L.GetGlobal("handler").(*lua.LFunction)
			if !ok {
				done <- dynamicResult{err: model.NewError(model.KindHandlerError, `source must define a function "handler"`, nil)}
				return
			}

			ctxTable := buildCtxTable(L, sctx)
			kwargsTable := goValueToLua(L, params.Kwargs)
			if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, ctxTable, kwargsTable); err != nil {
				done <- dynamicResult{err: model.NewError(model.KindHandlerError, "lua execution failed", err)}
				return
			}
			ret := L.Get(-1)
			L.Pop(1)
			done <- dynamicResult{val: luaValueToGo(ret)}
		}()

		select {
		case r := <-done:
			return r.val, r.err
		case <-ctx.Done():
			return nil, model.Cancelled
		case <-time.After(60 * time.Second):
			return nil, model.NewError(model.KindHandlerError, "lua execution timed out", nil)
		}
	}
}

// buildCtxTable is the sole object a dynamic scraper's handler function
// receives for I/O: a fetch(url) field returning (status, body), routed
// through the same middleware chain as any other handler's requests.
func buildCtxTable(L *lua.LState, sctx *scrapectx.Context) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("fetch", L.NewFunction(func(L *lua.LState) int {
		url := L.CheckString(1)
		resp, err := sctx.Get(url)
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LNumber(resp.StatusCode))
		L.Push(lua.LString(string(resp.Body)))
		return 2
	}))
	return tbl
}

func goValueToLua(L *lua.LState, v interface{}) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []interface{}:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, goValueToLua(L, item))
		}
		return tbl
	case map[string]interface{}:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, goValueToLua(L, item))
		}
		return tbl
	default:
		return lua.LNil
	}
}

func luaValueToGo(v lua.LValue) interface{} {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		// Treat a table with only positive integer keys 1..n as an
		// array; anything else becomes an object.
		var arr []interface{}
		isArray := true
		n := val.Len()
		for i := 1; i <= n; i++ {
			item := val.RawGetInt(i)
			if item == lua.LNil {
				isArray = false
				break
			}
			arr = append(arr, luaValueToGo(item))
		}
		if isArray && n > 0 {
			return arr
		}
		obj := make(map[string]interface{})
		val.ForEach(func(k, v lua.LValue) {
			obj[k.String()] = luaValueToGo(v)
		})
		return obj
	default:
		return nil
	}
}
