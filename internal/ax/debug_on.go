//go:build dwindle_debug

package ax

import "fmt"

const ownershipChecks = true

func checkOwner(owner int) {
	if cur := threadID(); cur != owner {
		panic(fmt.Sprintf("ax: session state owned by thread %d touched from thread %d", owner, cur))
	}
}
