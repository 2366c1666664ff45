package engine

// Export names the engine module must provide. Alloc and free names have
// fallbacks because wasi-sdk and emscripten builds export different symbol
// sets.
const (
	ExportEncode     = "ebcc_encode"
	ExportDecode     = "ebcc_decode"
	ExportFreeBuffer = "free_buffer"

	simpleAlloc = "malloc"
	cabiRealloc = "cabi_realloc"
	simpleFree  = "free"
)

// Residual mode discriminants of the foreign codec_config_t record.
const (
	ResidualNone          uint32 = 0
	ResidualMaxError      uint32 = 1
	ResidualRelativeError uint32 = 2
)

// CodecConfig mirrors the foreign codec_config_t record for a wasm32 engine.
// Dims is (frames, height, width). ResidualRatio belongs to a removed codec
// feature and is kept for layout compatibility only; it is always written as
// 1.0.
type CodecConfig struct {
	Dims          [3]uint32
	BaseRatio     float32
	ResidualMode  uint32
	ResidualRatio float32
	ErrorBound    float32
}

// Record layout (wasm32, little-endian): size_t dims[3] at offsets 0/4/8,
// float base_cr at 12, enum residual_compression_type at 16, float
// residual_cr at 20, float error at 24.
const (
	configDimsOff      = 0
	configBaseRatioOff = 12
	configModeOff      = 16
	configResRatioOff  = 20
	configErrorOff     = 24

	// ConfigSize is the marshalled size of CodecConfig in engine memory.
	ConfigSize = 28

	// PointerSize is the size of an engine pointer (wasm32) and therefore
	// of an out-slot.
	PointerSize = 4

	// ElementSize is the size of one grid element (float32).
	ElementSize = 4
)

// Marshal writes the record into engine memory at ptr.
func (c *CodecConfig) Marshal(mem Memory, ptr uint32) error {
	for i, d := range c.Dims {
		if err := mem.WriteU32(ptr+configDimsOff+uint32(i)*4, d); err != nil {
			return err
		}
	}
	if err := mem.WriteF32(ptr+configBaseRatioOff, c.BaseRatio); err != nil {
		return err
	}
	if err := mem.WriteU32(ptr+configModeOff, c.ResidualMode); err != nil {
		return err
	}
	if err := mem.WriteF32(ptr+configResRatioOff, c.ResidualRatio); err != nil {
		return err
	}
	return mem.WriteF32(ptr+configErrorOff, c.ErrorBound)
}

// UnmarshalCodecConfig reads a record back out of engine memory. Used by the
// in-process test engine; the production engine never reads configs.
func UnmarshalCodecConfig(mem Memory, ptr uint32) (CodecConfig, error) {
	var c CodecConfig
	for i := range c.Dims {
		d, err := mem.ReadU32(ptr + configDimsOff + uint32(i)*4)
		if err != nil {
			return c, err
		}
		c.Dims[i] = d
	}
	var err error
	if c.BaseRatio, err = mem.ReadF32(ptr + configBaseRatioOff); err != nil {
		return c, err
	}
	if c.ResidualMode, err = mem.ReadU32(ptr + configModeOff); err != nil {
		return c, err
	}
	if c.ResidualRatio, err = mem.ReadF32(ptr + configResRatioOff); err != nil {
		return c, err
	}
	if c.ErrorBound, err = mem.ReadF32(ptr + configErrorOff); err != nil {
		return c, err
	}
	return c, nil
}
