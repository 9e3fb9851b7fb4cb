package renderer

/** @brief How a buffer is going to be used. Values can be combined. */
type BufferUsage uint8

const (
	/** @brief Bound to compute kernels as a storage buffer. */
	BufferUsageStorage BufferUsage = 1 << iota
	/** @brief Memory the host can map. Mapped returns nil without it. */
	BufferUsageHostVisible
	/** @brief Destination of queued writes. */
	BufferUsageTransferDst
)

func (u BufferUsage) Has(flag BufferUsage) bool {
	return u&flag != 0
}

/**
 * @brief The device abstraction the attribute store is built on. Buffers are
 * fixed size, kernels are compiled compute programs.
 */
type Device interface {
	CreateBuffer(name string, size uint64, usage BufferUsage) (Buffer, error)
	CreateKernel(name string, spirv []uint32, pushSize uint32) (Kernel, error)
	/**
	 * @brief Runs fn on frame. A nil frame runs fn on a one-off frame and waits
	 * for its commands before returning.
	 */
	ExecuteSingleTimeCommands(frame Frame, fn func(Frame) error) error
	Shutdown() error
}

type Buffer interface {
	Name() string
	Size() uint64
	/** @brief Host view of the whole buffer, nil unless host visible. */
	Mapped() []byte
	Destroy()
}

/**
 * @brief Records commands. Commands run in submission order, WaitForCommands
 * blocks until every command queued so far has completed.
 */
type Frame interface {
	QueueWrite(dst Buffer, offset uint64, data []byte) error
	Dispatch(k Kernel, push []byte, invocations uint32, bindings ...Buffer) error
	WaitForCommands() error
}

type Kernel interface {
	Name() string
}
