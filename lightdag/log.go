// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lightdag

import (
	"github.com/dagnet/lightd/logger"
)

var log, _ = logger.Get(logger.SubsystemTags.LDAG)
