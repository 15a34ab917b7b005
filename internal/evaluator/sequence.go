package evaluator

// Sequence is an IEnumerable or IAsyncEnumerable value. A materialized
// sequence holds its items; a lazy one runs an iterator body on demand, one
// item per Next, so the interleaving of producer and consumer output is
// observable.
type Sequence struct {
	Async bool
	items []Object
	pos   int
	gen   *generator
}

func (s *Sequence) Type() ObjectType { return SEQUENCE_OBJ }

func (s *Sequence) Inspect() string {
	if s.gen != nil {
		return "<lazy sequence>"
	}
	return inspectAll(s.items)
}

func newList(items []Object, async bool) *Sequence {
	return &Sequence{Async: async, items: items}
}

// Next returns the next item; ok is false at the end.
func (s *Sequence) Next() (item Object, ok bool, err *Error) {
	if s.gen != nil {
		return s.gen.next()
	}
	if s.pos >= len(s.items) {
		return nil, false, nil
	}
	s.pos++
	return s.items[s.pos-1], true, nil
}

// Stop abandons a lazy sequence, unwinding its iterator body.
func (s *Sequence) Stop() {
	if s.gen != nil {
		s.gen.stop()
	}
}

// drain collects the remaining items.
func (s *Sequence) drain() ([]Object, *Error) {
	var out []Object
	for {
		it, ok, err := s.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, it)
	}
}

var errStopped = &Error{Message: "iteration stopped"}

type genItem struct {
	value Object
	err   *Error
	done  bool
}

// generator runs an iterator body on its own goroutine. Control passes back
// and forth over unbuffered channels, so exactly one side runs at a time.
type generator struct {
	run    func(yield func(Object) *Error) Object
	resume chan struct{}
	items  chan genItem
	quit   chan struct{}
	exited chan struct{}

	started, finished bool
}

func (e *Evaluator) newGenerator(async bool, run func(yield func(Object) *Error) Object) *Sequence {
	g := &generator{
		run:    run,
		resume: make(chan struct{}),
		items:  make(chan genItem),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	e.generators = append(e.generators, g)
	return &Sequence{Async: async, gen: g}
}

func (g *generator) next() (Object, bool, *Error) {
	if g.finished {
		return nil, false, nil
	}
	if !g.started {
		g.started = true
		go g.loop()
	} else {
		g.resume <- struct{}{}
	}
	it := <-g.items
	if it.done {
		g.finished = true
		<-g.exited
		return nil, false, it.err
	}
	return it.value, true, nil
}

func (g *generator) loop() {
	defer close(g.exited)
	res := g.run(func(v Object) *Error {
		select {
		case g.items <- genItem{value: v}:
		case <-g.quit:
			return errStopped
		}
		select {
		case <-g.resume:
			return nil
		case <-g.quit:
			return errStopped
		}
	})
	var err *Error
	if e, ok := res.(*Error); ok {
		err = e
	}
	select {
	case g.items <- genItem{done: true, err: err}:
	case <-g.quit:
	}
}

func (g *generator) stop() {
	if !g.started || g.finished {
		g.finished = true
		return
	}
	g.finished = true
	close(g.quit)
	<-g.exited
}
