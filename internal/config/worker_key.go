package config

type WorkerKeyStruct struct {
	PersistProgressQueue string
	PersistActivityQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistProgressQueue: "persist_progress_queue",
	PersistActivityQueue: "persist_activity_queue",
}
