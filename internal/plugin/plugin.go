// Package plugin implements the sandboxed WASM synth plugin host:
// loading a module, caching one instance per
// (content-hash, synth id), applying named parameter setters, and
// invoking its fixed render-note export.
//
// Semantics are pinned from the original engine's plugin/runner.rs:
// the __wbindgen_placeholder__ import stub set, the setter-name table,
// the named-export-falls-back-to-render_note resolution order, and the
// bump-allocator scratch memory strategy. wazero is the WASM runtime —
// no repo in the retrieval pack depends on one, so it is named in
// DESIGN.md as an out-of-pack dependency rather than grounded in a
// codebase in the retrieval pack.
package plugin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// setterNames maps a SynthDef parameter key to the WASM module's named
// exported setter function, pinned from the original runner.rs table.
var setterNames = map[string]string{
	"waveform":  "setWaveform",
	"cutoff":    "setCutoff",
	"resonance": "setResonance",
	"env_mod":   "setEnvMod",
	"decay":     "setDecay",
	"accent":    "setAccent",
	"drive":     "setDrive",
	"tone":      "setTone",
	"slide":     "setSlide",
	"glide":     "setGlide",
}

// Host owns the wazero runtime and a cache of instantiated plugin
// modules keyed by (content hash, synth id) so repeated triggers of the
// same plugin+instance reuse their WASM linear memory instead of
// reinstantiating per note.
type Host struct {
	runtime   wazero.Runtime
	mu        sync.Mutex
	instances map[string]*instance
}

type instance struct {
	mod api.Module
}

func NewHost(ctx context.Context) (*Host, error) {
	rt := wazero.NewRuntime(ctx)
	if _, err := instantiateWbindgenStubs(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, err
	}
	return &Host{runtime: rt, instances: make(map[string]*instance)}, nil
}

func (h *Host) Close(ctx context.Context) error {
	return h.runtime.Close(ctx)
}

// instantiateWbindgenStubs registers no-op/zero-returning stand-ins for
// the wasm-bindgen placeholder imports wasm-pack-built plugins pull in
// even though this host never calls into JS: __wbindgen_describe,
// __wbindgen_object_clone_ref (returns 0), __wbindgen_object_drop_ref,
// __wbindgen_string_new (returns 0), __wbindgen_throw.
func instantiateWbindgenStubs(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	builder := rt.NewHostModuleBuilder("__wbindgen_placeholder__")
	builder.NewFunctionBuilder().
		WithFunc(func(context.Context, uint32) {}).
		Export("__wbindgen_describe")
	builder.NewFunctionBuilder().
		WithFunc(func(context.Context, uint32) uint32 { return 0 }).
		Export("__wbindgen_object_clone_ref")
	builder.NewFunctionBuilder().
		WithFunc(func(context.Context, uint32) {}).
		Export("__wbindgen_object_drop_ref")
	builder.NewFunctionBuilder().
		WithFunc(func(context.Context, uint32, uint32) uint32 { return 0 }).
		Export("__wbindgen_string_new")
	builder.NewFunctionBuilder().
		WithFunc(func(context.Context, uint32, uint32) {}).
		Export("__wbindgen_throw")
	return builder.Instantiate(ctx)
}

// instanceKey hashes the module bytes together with the caller-chosen
// instance key (typically the synth id) so two triggers of the same
// plugin binary but different synth ids get independent instances,
// while repeated triggers of the same synth id reuse one.
func instanceKey(wasmBytes []byte, instanceID string) string {
	h := sha256.Sum256(append(append([]byte{}, wasmBytes...), []byte(instanceID)...))
	return hex.EncodeToString(h[:])
}

// Load instantiates (or returns the cached instance for) the given WASM
// bytes + instance id.
func (h *Host) Load(ctx context.Context, wasmBytes []byte, instanceID string) error {
	key := instanceKey(wasmBytes, instanceID)
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.instances[key]; ok {
		return nil
	}
	compiled, err := h.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return fmt.Errorf("compile wasm module: %w", err)
	}
	mod, err := h.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(key))
	if err != nil {
		return fmt.Errorf("instantiate wasm module: %w", err)
	}
	h.instances[key] = &instance{mod: mod}
	return nil
}

// ApplySetters calls each present params[key]'s named setter export in
// an unspecified order, skipping keys the plugin doesn't export a
// setter for.
func (h *Host) ApplySetters(ctx context.Context, wasmBytes []byte, instanceID string, params map[string]float64) error {
	key := instanceKey(wasmBytes, instanceID)
	h.mu.Lock()
	inst, ok := h.instances[key]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("plugin instance %q not loaded", instanceID)
	}
	for paramName, value := range params {
		setterName, ok := setterNames[paramName]
		if !ok {
			continue
		}
		fn := inst.mod.ExportedFunction(setterName)
		if fn == nil {
			continue
		}
		if _, err := fn.Call(ctx, api.EncodeF64(value)); err != nil {
			return fmt.Errorf("call %s: %w", setterName, err)
		}
	}
	return nil
}

// RenderIn renders interleaved PCM frames into buf in place, matching
// spec.md §4.4's fixed export signature exactly:
// (out_ptr:i32, out_len_frames:i32, freq:f32, amp:f32, duration_ms:i32,
// sample_rate:i32, channels:i32). The host allocates a scratch region
// sized to buf, copies buf's current content in (so a plugin chained
// after other processing sees it), invokes the export (trying the
// caller-supplied exportName first, falling back to "render_note"),
// then copies the written buffer back out.
func (h *Host) RenderIn(ctx context.Context, wasmBytes []byte, instanceID, exportName string, buf []float32, freq, amp float64, durationMs, sampleRate, channels int) ([]float32, error) {
	key := instanceKey(wasmBytes, instanceID)
	h.mu.Lock()
	inst, ok := h.instances[key]
	h.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("plugin instance %q not loaded", instanceID)
	}

	fn := inst.mod.ExportedFunction(exportName)
	if fn == nil {
		fn = inst.mod.ExportedFunction("render_note")
	}
	if fn == nil {
		return nil, fmt.Errorf("plugin exports neither %q nor render_note", exportName)
	}

	outLenFrames := len(buf) / channels
	ptr, err := allocTemp(ctx, inst.mod, uint32(len(buf)*4))
	if err != nil {
		return nil, err
	}

	mem := inst.mod.Memory()
	for i, s := range buf {
		if !mem.WriteUint32Le(ptr+uint32(i*4), api.EncodeF32(s)) {
			return nil, fmt.Errorf("write scratch sample %d out of bounds", i)
		}
	}

	_, err = fn.Call(ctx,
		uint64(ptr),
		uint64(uint32(outLenFrames)),
		api.EncodeF32(float32(freq)),
		api.EncodeF32(float32(amp)),
		uint64(uint32(durationMs)),
		uint64(uint32(sampleRate)),
		uint64(uint32(channels)),
	)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", exportName, err)
	}

	out := make([]float32, len(buf))
	for i := range out {
		bits, ok := mem.ReadUint32Le(ptr + uint32(i*4))
		if !ok {
			return nil, fmt.Errorf("read rendered sample %d out of bounds", i)
		}
		out[i] = api.DecodeF32(uint64(bits))
	}
	return out, nil
}

// allocTemp bump-allocates n bytes at the current end of the module's
// linear memory, growing it by whole 65536-byte WASM pages as needed,
// matching the original runner.rs's scratch allocation strategy (no
// free list — scratch buffers live for one render call).
func allocTemp(ctx context.Context, mod api.Module, n uint32) (uint32, error) {
	mem := mod.Memory()
	current := mem.Size()
	needed := current + n
	const pageSize = 65536
	if needed > mem.Size() {
		pagesNeeded := (needed - mem.Size() + pageSize - 1) / pageSize
		if _, ok := mem.Grow(pagesNeeded); !ok {
			return 0, fmt.Errorf("grow memory by %d pages: failed", pagesNeeded)
		}
	}
	return current, nil
}
