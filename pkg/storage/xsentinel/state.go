package xsentinel

// State 路由器状态。
type State int32

// 路由器状态。
const (
	StateUninitialized State = iota
	StateDiscovering
	StateReady
	StateDegraded
	StateFailed
)

// String 返回状态名。
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateDiscovering:
		return "DISCOVERING"
	case StateReady:
		return "READY"
	case StateDegraded:
		return "DEGRADED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Role 连接句柄的角色。
type Role string

// 句柄角色。
const (
	RolePrimary Role = "primary"
	RoleReplica Role = "replica"
)

// stateFor 根据两个句柄的探测结果计算状态。
// 主节点可用即可读写；仅从节点可用时只读。
func stateFor(primaryUp, replicaUp bool) State {
	switch {
	case primaryUp:
		return StateReady
	case replicaUp:
		return StateDegraded
	default:
		return StateFailed
	}
}
