// Package sched is a cooperative FIFO scheduler. Tasks run in submission
// order and keep the CPU until they ask to yield or exit; each task is bound
// to an address space that is activated before it runs.
package sched

import (
	"sync"

	"github.com/TephrocactusMYC/NeoOS/mem"
)

// what a task wants after one step
type Hint int

const (
	// run the next step immediately
	Again Hint = iota
	// requeue at the tail and let other tasks run
	Yield
	// the task is done; drop it
	Exit
)

type Task_i interface {
	Step() Hint
	Pmap() mem.Pmap_t
}

type node_t struct {
	task Task_i
	next *node_t
}

type Fifo_t struct {
	sync.Mutex
	head *node_t
	tail *node_t
	n    int
	// loads a task's page table before it runs; nil means no MMU to switch
	Switchpmap func(mem.Pmap_t)
	active     mem.Pmap_t
}

func MkFifo() *Fifo_t {
	return &Fifo_t{}
}

func (s *Fifo_t) Spawn(t Task_i) {
	s.Lock()
	n := &node_t{task: t}
	if s.tail != nil {
		s.tail.next = n
	} else {
		s.head = n
	}
	s.tail = n
	s.n++
	s.Unlock()
}

func (s *Fifo_t) Len() int {
	s.Lock()
	ret := s.n
	s.Unlock()
	return ret
}

func (s *Fifo_t) pop() Task_i {
	s.Lock()
	defer s.Unlock()
	if s.head == nil {
		return nil
	}
	n := s.head
	s.head = n.next
	if s.head == nil {
		s.tail = nil
	}
	s.n--
	return n.task
}

// Run1 runs the task at the head of the queue until it yields or exits.
// Returns false if the queue was empty.
func (s *Fifo_t) Run1() bool {
	t := s.pop()
	if t == nil {
		return false
	}
	if pm := t.Pmap(); pm != s.active {
		if s.Switchpmap != nil {
			s.Switchpmap(pm)
		}
		s.active = pm
	}
	for {
		switch t.Step() {
		case Again:
			continue
		case Yield:
			s.Spawn(t)
			return true
		case Exit:
			return true
		}
	}
}

// Runall drains the queue. With tasks that always yield eventually, this is
// the monitor's whole scheduling loop.
func (s *Fifo_t) Runall() {
	for s.Run1() {
	}
}
