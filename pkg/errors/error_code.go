package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 102
	ErrCodeInvalidTakeProfit    ErrorCode = 103
	ErrCodeInvalidStopLoss      ErrorCode = 104
	ErrCodeInsufficientData     ErrorCode = 105
	ErrCodeInvalidPeriod        ErrorCode = 106
	ErrCodeInvalidSymbol        ErrorCode = 107
	ErrCodeInvalidInterval      ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeWriteFailed           ErrorCode = 203

	// Indicator errors (300-399)
	ErrCodeIndicatorCalculation ErrorCode = 300

	// Strategy errors (400-499)
	ErrCodeStrategyNotFound     ErrorCode = 400
	ErrCodeStrategyConfigError  ErrorCode = 401
	ErrCodeStrategyRuntimeError ErrorCode = 402
	ErrCodeUnsupportedStrategy  ErrorCode = 403
	ErrCodeDuplicateStrategy    ErrorCode = 404

	// Trading errors (500-599)
	ErrCodeOrderFailed          ErrorCode = 500
	ErrCodePositionNotFound     ErrorCode = 501
	ErrCodePositionExists       ErrorCode = 502
	ErrCodeMaxPositionsReached  ErrorCode = 503
	ErrCodeInsufficientBalance  ErrorCode = 504
	ErrCodeOrderRejected        ErrorCode = 505
	ErrCodeUnprotectedPosition  ErrorCode = 506
	ErrCodeCancelFailed         ErrorCode = 507
	ErrCodeRiskLimitExceeded    ErrorCode = 508
	ErrCodePositionBelowMinimum ErrorCode = 509

	// Engine errors (600-699)
	ErrCodeEngineNotReady       ErrorCode = 600
	ErrCodeEngineAlreadyRunning ErrorCode = 601
	ErrCodeEngineInitFailed     ErrorCode = 602
	ErrCodeBrokerUnavailable    ErrorCode = 603

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataParseFailed ErrorCode = 701
	ErrCodeInvalidProvider       ErrorCode = 702
)
