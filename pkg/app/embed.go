package app

// Instance is a started module graph embedded in another process, the
// chat REPL for one. Unlike Run it has no signal handling and no
// config watcher; the embedder decides when to stop it.
type Instance struct {
	state *runState
}

// Load builds and starts a module graph the same way Run does, then
// hands it back instead of blocking. Callers must Stop the instance
// when done with it.
func Load(params RunParams) (*Instance, error) {
	state, err := boot(params)
	if err != nil {
		return nil, err
	}
	return &Instance{state: state}, nil
}

// Service returns a service registered by one of the loaded modules.
func (i *Instance) Service(name string) (any, bool) {
	return i.state.appCtx.Service(name)
}

// Stop stops all started modules in reverse start order.
func (i *Instance) Stop() {
	i.state.app.Stop()
}
