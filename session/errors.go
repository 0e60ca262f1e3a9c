// SPDX-License-Identifier: EPL-2.0

package session

import "errors"

var ErrAlreadyRun = errors.New("session already run")
