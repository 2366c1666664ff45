package enginetest

import (
	"encoding/binary"
	"math"
	"sync"

	ebcc "github.com/wippyai/ebcc"
	"github.com/wippyai/ebcc/errors"
)

// Memory is the arena backing an Engine. It implements ebcc.Memory and also
// serves as the engine-wide lock: one mutex guards arena bytes, allocation
// table, and counters, which makes the engine safe for concurrent codec
// calls the same way the wazero engine's call mutex does.
type Memory struct {
	mu  sync.Mutex
	eng *Engine
	buf []byte
}

func (m *Memory) Read(offset, length uint32) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read(offset, length)
}

func (m *Memory) Write(offset uint32, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(offset, data)
}

func (m *Memory) ReadU32(offset uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readU32(offset)
}

func (m *Memory) WriteU32(offset uint32, value uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeU32(offset, value)
}

func (m *Memory) ReadF32(offset uint32) (float32, error) {
	bits, err := m.ReadU32(offset)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

func (m *Memory) WriteF32(offset uint32, value float32) error {
	return m.WriteU32(offset, math.Float32bits(value))
}

func (m *Memory) Size() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint32(len(m.buf))
}

// Lock-free inner accessors, used while the engine already holds the mutex.

func (m *Memory) read(offset, length uint32) ([]byte, error) {
	if int(offset)+int(length) > len(m.buf) {
		return nil, errors.OutOfBounds(offset, length)
	}
	return m.buf[offset : offset+length], nil
}

func (m *Memory) write(offset uint32, data []byte) error {
	if int(offset)+len(data) > len(m.buf) {
		return errors.OutOfBounds(offset, uint32(len(data)))
	}
	copy(m.buf[offset:], data)
	return nil
}

func (m *Memory) readU32(offset uint32) (uint32, error) {
	b, err := m.read(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *Memory) writeU32(offset uint32, value uint32) error {
	if int(offset)+4 > len(m.buf) {
		return errors.OutOfBounds(offset, 4)
	}
	binary.LittleEndian.PutUint32(m.buf[offset:], value)
	return nil
}

// unlocked adapts the inner accessors to ebcc.Memory for helpers that are
// invoked while the engine holds the mutex.
func (m *Memory) unlocked() ebcc.Memory {
	return unlockedMemory{m}
}

type unlockedMemory struct {
	m *Memory
}

func (u unlockedMemory) Read(offset, length uint32) ([]byte, error) { return u.m.read(offset, length) }
func (u unlockedMemory) Write(offset uint32, data []byte) error     { return u.m.write(offset, data) }
func (u unlockedMemory) ReadU32(offset uint32) (uint32, error)      { return u.m.readU32(offset) }
func (u unlockedMemory) WriteU32(offset uint32, value uint32) error { return u.m.writeU32(offset, value) }

func (u unlockedMemory) ReadF32(offset uint32) (float32, error) {
	bits, err := u.m.readU32(offset)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

func (u unlockedMemory) WriteF32(offset uint32, value float32) error {
	return u.m.writeU32(offset, math.Float32bits(value))
}
