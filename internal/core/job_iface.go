package core

// Job is the hosting worker's lifecycle surface. Shutdown is idempotent;
// callbacks registered after shutdown run immediately.
type Job interface {
	AddShutdownCallback(fn func(reason string))
	Shutdown(reason string)
}
