package arbor

import (
	"fmt"
	"reflect"
	"sync"
)

// Proxy converts between a target type and the wire type used to represent
// it. Build one with NewProxy.
type Proxy interface {
	// Target is the type the proxy stands in for.
	Target() reflect.Type

	// Wire is the type read from and written to the tree.
	Wire() reflect.Type

	fromWire(wire reflect.Value) (reflect.Value, error)
	toWire(v reflect.Value) (reflect.Value, error)
}

type proxy[T, P any] struct {
	decode func(P) (T, error)
	encode func(T) (P, error)
}

// NewProxy builds a proxy that reads a P from the tree and converts it to T
// with decode, and converts T to P with encode when writing.
func NewProxy[T, P any](decode func(P) (T, error), encode func(T) (P, error)) Proxy {
	return &proxy[T, P]{decode: decode, encode: encode}
}

func (p *proxy[T, P]) Target() reflect.Type { return reflect.TypeFor[T]() }
func (p *proxy[T, P]) Wire() reflect.Type   { return reflect.TypeFor[P]() }

func (p *proxy[T, P]) fromWire(wire reflect.Value) (reflect.Value, error) {
	w, _ := wire.Interface().(P)
	t, err := p.decode(w)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(&t).Elem(), nil
}

func (p *proxy[T, P]) toWire(v reflect.Value) (reflect.Value, error) {
	t, _ := v.Interface().(T)
	w, err := p.encode(t)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(&w).Elem(), nil
}

type typeProxyKey struct {
	typ    reflect.Type
	format string
}

var (
	namedProxies = make(map[string]Proxy)
	typeProxies  = make(map[typeProxyKey]Proxy)
	proxiesMu    sync.RWMutex
)

// RegisterProxy makes p available to fields tagged `proxy=name` or
// `proxy.<format>=name`.
func RegisterProxy(name string, p Proxy) {
	proxiesMu.Lock()
	defer proxiesMu.Unlock()
	namedProxies[name] = p
}

// RegisterTypeProxy applies p wherever its target type appears. An empty
// format applies to every format without a more specific registration.
func RegisterTypeProxy(format string, p Proxy) {
	proxiesMu.Lock()
	defer proxiesMu.Unlock()
	typeProxies[typeProxyKey{typ: p.Target(), format: format}] = p
}

// fieldProxy resolves the proxy of f for format.
func fieldProxy(f *Field, format string) (Proxy, error) {
	name := f.ProxyName(format)
	if name == "" {
		return nil, nil
	}
	proxiesMu.RLock()
	p, ok := namedProxies[name]
	proxiesMu.RUnlock()
	if !ok {
		return nil, newConfigError(ErrInvalidTag, "", f.Name, fmt.Sprintf("proxy %q is not registered", name))
	}
	if p.Target() != f.Shape.Type {
		return nil, newConfigError(ErrInvalidTag, "", f.Name,
			fmt.Sprintf("proxy %q targets %s, field is %s", name, p.Target(), f.Shape.Type))
	}
	return p, nil
}

// typeProxy returns the container proxy for t, preferring the format's own.
func typeProxy(t reflect.Type, format string) Proxy {
	proxiesMu.RLock()
	defer proxiesMu.RUnlock()
	if len(typeProxies) == 0 {
		return nil
	}
	if format != "" {
		if p, ok := typeProxies[typeProxyKey{typ: t, format: format}]; ok {
			return p
		}
	}
	return typeProxies[typeProxyKey{typ: t}]
}

// effectiveProxy applies field-level before container-level proxies.
func effectiveProxy(f *Field, s *Shape, format string) (Proxy, error) {
	if f != nil {
		p, err := fieldProxy(f, format)
		if err != nil || p != nil {
			return p, err
		}
	}
	return typeProxy(s.Type, format), nil
}

// resetProxies clears every registration.
func resetProxies() {
	proxiesMu.Lock()
	defer proxiesMu.Unlock()
	namedProxies = make(map[string]Proxy)
	typeProxies = make(map[typeProxyKey]Proxy)
}
