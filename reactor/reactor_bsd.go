//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package reactor

import "golang.org/x/sys/unix"

// kqueueReactor wraps a BSD-family kqueue instance.
type kqueueReactor struct {
	kq  int
	fds map[int]UserData
}

// New constructs the kqueue-backed Reactor for BSD-family platforms
// (Darwin included).
func New() (Reactor, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueueReactor{kq: kq, fds: make(map[int]UserData)}, nil
}

func (r *kqueueReactor) RegisterRead(fd int, data UserData) error {
	ev := unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD | unix.EV_ENABLE}
	if _, err := unix.Kevent(r.kq, []unix.Kevent_t{ev}, nil, nil); err != nil {
		return err
	}
	r.fds[fd] = data
	return nil
}

func (r *kqueueReactor) Remove(fd int) error {
	delete(r.fds, fd)
	ev := unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE}
	_, err := unix.Kevent(r.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

func (r *kqueueReactor) Run(timeoutMs int, cb Callback) error {
	events := make([]unix.Kevent_t, 256)
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{Sec: int64(timeoutMs / 1000), Nsec: int64(timeoutMs%1000) * 1e6}
	}
	n, err := unix.Kevent(r.kq, nil, events, ts)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}
	for i := 0; i < n; i++ {
		fd := int(events[i].Ident)
		data, ok := r.fds[fd]
		if !ok {
			continue
		}
		cb(data)
	}
	return nil
}

func (r *kqueueReactor) Close() error {
	return unix.Close(r.kq)
}
