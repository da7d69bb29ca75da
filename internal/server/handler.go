package server

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/dreamware/matrixd/internal/compute"
	"github.com/dreamware/matrixd/internal/matrix"
	"github.com/dreamware/matrixd/internal/protocol"
)

// State is a step in a connection's lifecycle.
type State int

const (
	StateAccepted State = iota
	StateRequestRead
	StateMatricesGenerated
	StateWorkersDispatched
	StateWorkersJoined
	StateResponseSent
	StateErrored
	StateClosed
)

var stateNames = [...]string{
	StateAccepted:          "accepted",
	StateRequestRead:       "request-read",
	StateMatricesGenerated: "matrices-generated",
	StateWorkersDispatched: "workers-dispatched",
	StateWorkersJoined:     "workers-joined",
	StateResponseSent:      "response-sent",
	StateErrored:           "errored",
	StateClosed:            "closed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// transitions lists the legal successors of each state.
var transitions = map[State][]State{
	StateAccepted:          {StateRequestRead, StateErrored},
	StateRequestRead:       {StateMatricesGenerated, StateErrored},
	StateMatricesGenerated: {StateWorkersDispatched},
	StateWorkersDispatched: {StateWorkersJoined},
	StateWorkersJoined:     {StateResponseSent, StateErrored},
	StateResponseSent:      {StateClosed, StateErrored},
	StateErrored:           {StateClosed},
}

// canTransition reports whether from → to is a legal step.
func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// handler serves the single exchange carried by one connection.
type handler struct {
	srv     *Server
	conn    net.Conn
	started time.Time
	id      string
	history []State
	state   State
}

func newHandler(srv *Server, conn net.Conn, id string) *handler {
	return &handler{
		srv:     srv,
		conn:    conn,
		id:      id,
		state:   StateAccepted,
		history: []State{StateAccepted},
		started: time.Now(),
	}
}

func (h *handler) transition(to State) {
	if !canTransition(h.state, to) {
		log.Printf("handler[%s] illegal transition %s -> %s", h.id, h.state, to)
	}
	h.state = to
	h.history = append(h.history, to)
}

// serve runs the state machine to completion. The connection is closed on
// every path.
func (h *handler) serve() {
	defer h.close()
	defer h.recoverPanic()
	h.srv.stats.onOpen()
	log.Printf("handler[%s] accepted from %s", h.id, h.conn.RemoteAddr())

	req, err := h.readRequest()
	if err != nil {
		h.fail(err)
		return
	}
	h.transition(StateRequestRead)
	log.Printf("handler[%s] request read: size=%d strategy=%s want_matrix=%t",
		h.id, req.Size, req.Strategy, req.WantMatrix)

	ex := Exchange{ID: h.id, Request: req}
	ex.A = h.srv.gen.Generate(req.Size)
	ex.B = h.srv.gen.Generate(req.Size)
	ex.C, err = matrix.New(req.Size)
	if err != nil {
		h.fail(fmt.Errorf("allocate result: %v: %w", err, protocol.ErrProtocol))
		return
	}
	h.transition(StateMatricesGenerated)

	err = h.compute(ex.A, ex.B, ex.C, req)
	h.transition(StateWorkersJoined)
	ex.Code = protocol.CodeFor(err)
	ex.Duration = time.Since(h.started)
	if h.srv.observer != nil {
		h.srv.observer(ex)
	}
	if err != nil {
		h.fail(err)
		return
	}
	log.Printf("handler[%s] workers joined in %v", h.id, ex.Duration)

	resp := protocol.Response{Code: protocol.CodeOK}
	if req.WantMatrix {
		resp.Matrix = ex.C
	}
	h.transition(StateResponseSent)
	if err := h.write(resp); err != nil {
		log.Printf("handler[%s] write response: %v", h.id, err)
		h.transition(StateErrored)
		h.srv.stats.onFailure(protocol.CodeTransport)
		return
	}
	h.srv.stats.onComplete(req.Size, time.Since(h.started))
	log.Printf("handler[%s] response sent", h.id)
}

// readRequest decodes the request and applies the server's size limit.
func (h *handler) readRequest() (protocol.Request, error) {
	if d := h.srv.cfg.ReadTimeout; d > 0 {
		if err := h.conn.SetReadDeadline(time.Now().Add(d)); err != nil {
			return protocol.Request{}, fmt.Errorf("set read deadline: %v: %w", err, protocol.ErrTransport)
		}
	}
	req, err := protocol.ReadRequest(h.conn)
	if err != nil {
		return protocol.Request{}, err
	}
	if limit := h.srv.cfg.SizeLimit(); req.Size > limit {
		return protocol.Request{}, fmt.Errorf("size %d above %d: %w", req.Size, limit, protocol.ErrSizeLimit)
	}
	return req, nil
}

// compute plans the request, runs one worker per assignment and waits for
// all of them. Any failure is a compute failure.
func (h *handler) compute(a, b, c *matrix.Matrix, req protocol.Request) error {
	h.transition(StateWorkersDispatched)
	plan, err := h.srv.planner.Plan(req.Size, req.Strategy)
	if err != nil {
		return fmt.Errorf("plan: %v: %w", err, protocol.ErrComputeFailure)
	}
	log.Printf("handler[%s] dispatching %d workers", h.id, plan.Workers())

	if err := compute.Run(a, b, c, plan, compute.Options{Limit: h.srv.cfg.WorkerLimit}); err != nil {
		return fmt.Errorf("%v: %w", err, protocol.ErrComputeFailure)
	}
	if h.srv.cfg.Verify {
		if err := plan.Validate(); err != nil {
			return fmt.Errorf("verify plan: %v: %w", err, protocol.ErrComputeFailure)
		}
		if err := matrix.Verify(a, b, c, matrix.DefaultTolerance); err != nil {
			return fmt.Errorf("%v: %w", err, protocol.ErrComputeFailure)
		}
	}
	return nil
}

// write sends resp through a buffered writer, honoring the write timeout.
func (h *handler) write(resp protocol.Response) error {
	if d := h.srv.cfg.WriteTimeout; d > 0 {
		if err := h.conn.SetWriteDeadline(time.Now().Add(d)); err != nil {
			return fmt.Errorf("set write deadline: %v: %w", err, protocol.ErrTransport)
		}
	}
	bw := bufio.NewWriterSize(h.conn, 64<<10)
	if err := protocol.WriteResponse(bw, resp); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %v: %w", err, protocol.ErrTransport)
	}
	return nil
}

// fail moves to Errored and writes a best-effort error response.
func (h *handler) fail(err error) {
	code := protocol.CodeFor(err)
	h.transition(StateErrored)
	h.srv.stats.onFailure(code)
	log.Printf("handler[%s] failed with code %v: %v", h.id, code, err)

	if code == protocol.CodeTransport {
		return
	}
	if werr := h.write(protocol.Response{Code: code}); werr != nil {
		log.Printf("handler[%s] write error response: %v", h.id, werr)
	}
}

// recoverPanic turns a panic outside the workers, from a Generator or an
// Observer for instance, into a compute failure of this request alone.
func (h *handler) recoverPanic() {
	r := recover()
	if r == nil {
		return
	}
	log.Printf("handler[%s] panic in state %s: %v", h.id, h.state, r)
	if h.state == StateErrored {
		return
	}
	if h.state == StateWorkersDispatched {
		// no direct edge to Errored; record the join first
		h.transition(StateWorkersJoined)
	}
	h.fail(fmt.Errorf("panic: %v: %w", r, protocol.ErrComputeFailure))
}

func (h *handler) close() {
	if err := h.conn.Close(); err != nil {
		log.Printf("handler[%s] close: %v", h.id, err)
	}
	h.transition(StateClosed)
	h.srv.stats.onClose()
}
