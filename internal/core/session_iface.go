package core

// ConnID identifies one live transport connection.
// Assigned by the transport; the coordinator only keys sessions by it.
type ConnID string
