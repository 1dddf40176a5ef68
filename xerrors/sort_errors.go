package xerrors

var (
	// ErrEmptyInput 待排序序列为空。
	ErrEmptyInput = New(ErrInvalidArg, 400001, "empty input", "at least one positive integer is required", nil)
	// ErrEmptyToken 参数为空字符串。
	ErrEmptyToken = New(ErrInvalidArg, 400002, "empty token", "arguments must not be empty strings", nil)
	// ErrNotDigits 参数包含非数字字符。
	ErrNotDigits = New(ErrInvalidArg, 400003, "not a number", "arguments may contain only the digits 0-9", nil)
	// ErrZeroValue 参数为零。
	ErrZeroValue = New(ErrInvalidArg, 400004, "zero value", "only positive integers are accepted", nil)
	// ErrOutOfRange 参数超出无符号 32 位整数范围。
	ErrOutOfRange = New(ErrInvalidArg, 400005, "value out of range", "value exceeds the unsigned 32-bit range", nil)
	// ErrUnknownBacking 未知的主链存储结构。
	ErrUnknownBacking = New(ErrInvalidArg, 400006, "unknown backing", "supported backings: slice, deque", nil)
	// ErrInvalidBenchSize 压测规模配置非法。
	ErrInvalidBenchSize = New(ErrInvalidArg, 400007, "invalid bench size", "bench sizes and rounds must be positive", nil)
	// ErrInvalidConfig 配置加载或校验失败。
	ErrInvalidConfig = New(ErrInvalidArg, 400008, "invalid config", "check the configuration file and environment overrides", nil)
	// ErrResultMismatch 不同存储结构的排序结果不一致。
	ErrResultMismatch = New(ErrInternal, 500001, "result mismatch", "sorted outputs differ between backings", nil)
	// ErrBoundExceeded 比较次数超过 Ford-Johnson 理论上界。
	ErrBoundExceeded = New(ErrInternal, 500002, "comparison bound exceeded", "comparison count is above the Ford-Johnson bound", nil)
	// ErrNotSorted 输出不是有序序列。
	ErrNotSorted = New(ErrInternal, 500003, "output not sorted", "sorted output violates ascending order", nil)
)
