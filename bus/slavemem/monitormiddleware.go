package slavemem

// monitorMiddleware moves every monitor register one step forward. It runs
// first in the middleware chain, so the beats the engines complete in a
// cycle become externally visible exactly one cycle later. The monitors
// are purely observational and exert no back-pressure on the engines.
type monitorMiddleware struct {
	*Comp
}

func (m *monitorMiddleware) Tick() bool {
	madeProgress := false

	for _, g := range m.groups {
		if g.writeMonCaptured.Valid || g.writeMonVisible.Valid ||
			g.readMonCaptured.Valid || g.readMonVisible.Valid {
			madeProgress = true
		}

		g.writeMonVisible = g.writeMonCaptured
		g.writeMonCaptured = MonitorEvent{}
		g.readMonVisible = g.readMonCaptured
		g.readMonCaptured = MonitorEvent{}
	}

	return madeProgress
}
