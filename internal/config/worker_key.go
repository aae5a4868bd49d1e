package config

type WorkerKeyStruct struct {
	PersistProctorQueue   string
	PersistSnapshotsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistProctorQueue:   "persist_proctor_queue",
	PersistSnapshotsQueue: "persist_snapshots_queue",
}
