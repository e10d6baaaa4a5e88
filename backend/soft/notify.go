// SPDX-License-Identifier: EPL-2.0

package soft

import "sync"

// notifier runs end of buffer callbacks on its own goroutine, in the order
// they were posted. post never blocks, so it is safe to call with device
// locks held.
type notifier struct {
	mtx    sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newNotifier() *notifier {
	n := &notifier{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *notifier) post(fns ...func()) {
	if len(fns) == 0 {
		return
	}

	n.mtx.Lock()
	if n.closed {
		n.mtx.Unlock()
		return
	}
	n.queue = append(n.queue, fns...)
	select {
	case n.wake <- struct{}{}:
	default:
	}
	n.mtx.Unlock()
}

func (n *notifier) run() {
	defer close(n.done)

	for range n.wake {
		for {
			n.mtx.Lock()
			batch := n.queue
			n.queue = nil
			n.mtx.Unlock()

			if len(batch) == 0 {
				break
			}
			for _, fn := range batch {
				if fn != nil {
					fn()
				}
			}
		}
	}
}

// close drops pending callbacks and waits for the running one to return.
func (n *notifier) close() {
	n.mtx.Lock()
	if n.closed {
		n.mtx.Unlock()
		<-n.done
		return
	}
	n.closed = true
	n.queue = nil
	close(n.wake)
	n.mtx.Unlock()

	<-n.done
}
