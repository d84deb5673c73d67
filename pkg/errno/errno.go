package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// WithMessage 返回替换了描述信息的副本 (错误码不变)
func (e Errno) WithMessage(msg string) Errno {
	e.Message = msg
	return e
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	switch typed := err.(type) {
	case *Errno:
		return typed.Code, typed.Message
	case Errno:
		return typed.Code, typed.Message
	}

	// fmt.Errorf("%w") 包装过的 Errno 保留业务码, 描述带上完整上下文
	var e Errno
	if errors.As(err, &e) {
		return e.Code, err.Error()
	}
	return InternalServerError.Code, err.Error()
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrBackend          = Errno{Code: 10003, Message: "Chain backend request failed"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
)

// Wallet Errors (20000+)
var (
	ErrWalletNotFound    = Errno{Code: 20101, Message: "Wallet not found"}
	ErrWalletExists      = Errno{Code: 20102, Message: "Wallet with this name already exists"}
	ErrPasswordIncorrect = Errno{Code: 20103, Message: "Password incorrect"}
	ErrInvalidMnemonic   = Errno{Code: 20104, Message: "Invalid mnemonic phrase"}
	ErrSessionExpired    = Errno{Code: 20105, Message: "Wallet session expired or not found"}
)

// Send Wizard Errors (21000+)
var (
	ErrWizardPhase       = Errno{Code: 21001, Message: "Operation not allowed in the current wizard phase"}
	ErrMissingAsset      = Errno{Code: 21002, Message: "Asset is required"}
	ErrInvalidAmount     = Errno{Code: 21003, Message: "Amount must be greater than zero"}
	ErrMissingRecipient  = Errno{Code: 21004, Message: "Destination address is required for a transfer"}
	ErrPasswordRequired  = Errno{Code: 21005, Message: "Password has not been entered"}
	ErrBroadcastFailed   = Errno{Code: 21006, Message: "Transaction broadcast failed"}
	ErrInsufficientFunds = Errno{Code: 21007, Message: "Insufficient balance"}
)

// Memoless Errors (22000+)
var (
	ErrSessionNotFound      = Errno{Code: 22001, Message: "Memoless session not found"}
	ErrNotGasAsset          = Errno{Code: 22002, Message: "Asset is not a native gas asset"}
	ErrChainNotSupported    = Errno{Code: 22003, Message: "Chain is not supported for memoless deposits"}
	ErrMemoRequired         = Errno{Code: 22004, Message: "Memo to register is required"}
	ErrStepOrder            = Errno{Code: 22005, Message: "Operation not allowed in the current step"}
	ErrReferenceNotFound    = Errno{Code: 22006, Message: "Reference id not found for transaction"}
	ErrAmountBelowMinimum   = Errno{Code: 22007, Message: "Amount is below the $0.01 minimum"}
	ErrAmountBelowDust      = Errno{Code: 22008, Message: "Amount is below the chain dust threshold"}
	ErrEncodeVerifyMismatch = Errno{Code: 22009, Message: "Encoded amount failed independent validation"}
	ErrReferenceExpired     = Errno{Code: 22010, Message: "Reference id is expired or fully used"}
)
