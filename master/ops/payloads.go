package ops

// CreateTablePayload backs the CreateTable state machine (spec §4.4, §6).
type CreateTablePayload struct {
	Name     string
	Schema   string
	TableID  string
	Location string
	Parts    TableParts
	// IdempotentCreate, when set, tolerates Hyperspace reporting the table
	// file already exists instead of failing the operation.
	IdempotentCreate bool
}

// DropTablePayload backs the DropTable state machine.
type DropTablePayload struct {
	IfExists  bool
	Name      string
	TableID   string
	Completed []string
	Servers   []string
	Parts     TableParts
}

// AlterTablePayload backs the AlterTable state machine. Schema is the
// proposed new schema; validation compares it against the table's currently
// registered schema held in the Context's table registry.
type AlterTablePayload struct {
	Name      string
	Schema    string
	TableID   string
	Completed []string
	Servers   []string
}

// RecreateIndexTablesPayload backs the RecreateIndexTables orchestrator.
type RecreateIndexTablesPayload struct {
	TableName string
	Parts     TableParts
	// SubopHash is a hint into the Reference Manager for the active sub-op
	// (spec §9 design note / §7 open-question resolution).
	SubopHash uint64
	// Step tracks which of the four sub-operations is currently active, used
	// to deterministically reconstruct the sub-op if the hash-code hint misses.
	Step int
}

// SuspendMaintenancePayload backs SuspendMaintenance/ResumeMaintenance.
type SuspendMaintenancePayload struct {
	Name      string
	TableID   string
	Label     string
	Servers   []string
	Completed []string
	// RetryAfterUnixMilli holds SUSPEND/RESUME_MAINTENANCE_RANGESERVER off
	// until this time once a transient range-server failure leaves servers
	// remaining, so the fan-out doesn't hammer an unreachable server on
	// every Drain tick.
	RetryAfterUnixMilli int64
}

// ToggleTableMaintenancePayload backs ToggleTableMaintenance.
type ToggleTableMaintenancePayload struct {
	Name   string
	Enable bool
}

// RecoverPayload backs the Recover state machine, created by the watcher when
// a registered range server's lock is released.
type RecoverPayload struct {
	Location         string
	BarrierUnixMilli int64
}

// RegisterServerPayload backs RegisterServer.
type RegisterServerPayload struct {
	Location string
}

// RegisterServerBlockerPayload backs the ephemeral RegisterServerBlocker
// inserted on lock_acquired (spec §4.6).
type RegisterServerBlockerPayload struct {
	Location string
}

// StatusPayload backs the read-only Status operation (OperationStatus.cc).
// Result is filled by executeStatus and read by the admin HTTP surface; it is
// never persisted (Status is ephemeral).
type StatusPayload struct {
	Result *StatusSnapshot
}

// TimedBarrierPayload backs the synthetic bootstrap barrier operation used to
// resolve the Dependency::INIT open question (spec §7).
type TimedBarrierPayload struct {
	Label          string
	UntilUnixMilli int64
}
