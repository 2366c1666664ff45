package ebcc

// Memory represents the engine's linear memory as seen by the host.
// All multi-byte accesses are little-endian, matching the wasm32 ABI.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
	WriteU32(offset uint32, value uint32) error
	ReadF32(offset uint32) (float32, error)
	WriteF32(offset uint32, value float32) error
}

// MemorySizer provides the current size of engine linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}
