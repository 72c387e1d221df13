package exception

import "github.com/yanun0323/errors"

// Risk errors. The order was denied before it reached the oracle.
var (
	ErrTradingHalted = errors.New("risk: trading halted")
	ErrRateLimited   = errors.New("risk: order rate limit exceeded")
)
