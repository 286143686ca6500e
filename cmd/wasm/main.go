//go:build js && wasm
// +build js,wasm

package main

import (
	"fmt"
	"syscall/js"

	"github.com/soundprint/soundprint/pkg/soundprint"
)

// Error codes returned to JavaScript.
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorProcessing
)

// generateFingerprint runs the recognizer's pipeline over a browser-supplied
// PCM buffer and returns its fingerprint addresses and anchor frames.
// Returns: {error: number, data: array | string}
func generateFingerprint(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return makeErrorResponse(ErrorInvalidArgs, "expected 3 arguments: audioArray, sampleRate, channels")
	}

	audioDataJS := args[0]
	sampleRateJS := args[1]
	channelsJS := args[2]

	if audioDataJS.Type() != js.TypeObject {
		return makeErrorResponse(ErrorInvalidArgs, "audioArray must be an Array or Float64Array")
	}
	if sampleRateJS.Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "sampleRate must be a number")
	}
	if channelsJS.Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "channels must be a number")
	}

	sampleRate := sampleRateJS.Int()
	channels := channelsJS.Int()

	if sampleRate <= 0 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("invalid sample rate: %d", sampleRate))
	}
	if channels < 1 || channels > 2 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("channels must be 1 (mono) or 2 (stereo), got: %d", channels))
	}

	length := audioDataJS.Length()
	if length == 0 {
		return makeErrorResponse(ErrorInvalidArgs, "audioArray is empty")
	}

	samples := make([]float64, length)
	for i := 0; i < length; i++ {
		val := audioDataJS.Index(i)
		if val.Type() != js.TypeNumber {
			return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("audioArray element %d is not a number", i))
		}
		samples[i] = val.Float()
	}

	if channels == 2 {
		samples = stereoToMono(samples)
	}

	engine, err := soundprint.New()
	if err != nil {
		return makeErrorResponse(ErrorProcessing, fmt.Sprintf("building engine: %v", err))
	}

	diag, err := engine.Analyze(samples, sampleRate)
	if err != nil {
		return makeErrorResponse(ErrorProcessing, fmt.Sprintf("fingerprinting failed: %v", err))
	}
	if len(diag.Fingerprints) == 0 {
		return makeErrorResponse(ErrorProcessing, "no fingerprints produced (audio may be silent or too short)")
	}

	hashArray := js.Global().Get("Array").New()
	for i, fp := range diag.Fingerprints {
		hashObj := js.Global().Get("Object").New()
		hashObj.Set("address", uint32(fp.Address))
		hashObj.Set("anchorFrame", fp.AnchorFrame)
		hashArray.SetIndex(i, hashObj)
	}

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", hashArray)
	return result
}

func stereoToMono(stereo []float64) []float64 {
	if len(stereo)%2 != 0 {
		stereo = stereo[:len(stereo)-1]
	}

	monoLength := len(stereo) / 2
	mono := make([]float64, monoLength)

	for i := 0; i < monoLength; i++ {
		mono[i] = (stereo[i*2] + stereo[i*2+1]) / 2.0
	}

	return mono
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	if !console.IsUndefined() {
		console.Call("log", "soundprint WASM module initializing...")
	}

	done := make(chan struct{})

	js.Global().Set("generateFingerprint", js.FuncOf(generateFingerprint))

	if !console.IsUndefined() {
		console.Call("log", "generateFingerprint function registered")
	}

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
	} else if !console.IsUndefined() {
		console.Call("error", "window object is undefined")
	}

	if !console.IsUndefined() {
		console.Call("log", "soundprint WASM module loaded and ready")
	}

	<-done
}
