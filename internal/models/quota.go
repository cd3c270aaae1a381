package models

type QuotaWindow string

const (
	// QuotaWindowLifetime counts until an external reset; used for
	// anonymous devices.
	QuotaWindowLifetime QuotaWindow = "lifetime"
	// QuotaWindowDaily resets at UTC midnight; used for signed-in users.
	QuotaWindowDaily QuotaWindow = "daily"
)

// QuotaState is the usage snapshot for one identity in its current window.
type QuotaState struct {
	Identity Identity
	Used     int
	Limit    int
	Window   QuotaWindow
}

func (q QuotaState) Remaining() int {
	if q.Used >= q.Limit {
		return 0
	}
	return q.Limit - q.Used
}
