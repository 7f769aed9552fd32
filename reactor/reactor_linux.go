//go:build linux

package reactor

import "golang.org/x/sys/unix"

// epollReactor wraps a Linux epoll instance. epoll_event carries only the
// watched fd back on each wakeup, so fds maps fd -> the UserData supplied
// at RegisterRead time.
type epollReactor struct {
	epfd int
	fds  map[int]UserData
}

// New constructs the Linux epoll-backed Reactor.
func New() (Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollReactor{epfd: epfd, fds: make(map[int]UserData)}, nil
}

func (r *epollReactor) RegisterRead(fd int, data UserData) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	r.fds[fd] = data
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		delete(r.fds, fd)
		return err
	}
	return nil
}

func (r *epollReactor) Remove(fd int) error {
	delete(r.fds, fd)
	// EPOLL_CTL_DEL historically required a non-nil event pointer.
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, &unix.EpollEvent{})
}

func (r *epollReactor) Run(timeoutMs int, cb Callback) error {
	events := make([]unix.EpollEvent, 256)
	n, err := unix.EpollWait(r.epfd, events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}
	for i := 0; i < n; i++ {
		fd := int(events[i].Fd)
		data, ok := r.fds[fd]
		if !ok {
			// Stale event for an fd removed earlier this batch.
			continue
		}
		cb(data)
	}
	return nil
}

func (r *epollReactor) Close() error {
	return unix.Close(r.epfd)
}
