package ports

// EmailWatcher watches a webmail view and runs the verdict pipeline
// whenever an email is opened
type EmailWatcher interface {
	// Start starts watching in the background
	Start() error

	// Stop stops watching and waits for in-flight work
	Stop() error
}

// Stopper is implemented by components holding background tasks or
// connections
type Stopper interface {
	Stop()
}
