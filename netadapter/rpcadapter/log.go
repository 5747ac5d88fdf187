package rpcadapter

import (
	"github.com/dagnet/lightd/logger"
)

var log, _ = logger.Get(logger.SubsystemTags.NTAR)
