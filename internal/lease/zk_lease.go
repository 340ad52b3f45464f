package lease

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

const lockRoot = "/flashsale/leases"

// ZKLease implements Lease with a sequential-ephemeral-node lock on
// ZooKeeper, grounded on wangyingjie930-jaeger_demo's
// internal/zookeeper/lock.go. The lock node is ephemeral, so a crashed
// holder's lease is released automatically when its session expires.
type ZKLease struct {
	conn    *zk.Conn
	timeout time.Duration
}

func NewZKLease(conn *zk.Conn, waitTimeout time.Duration) *ZKLease {
	if waitTimeout <= 0 {
		waitTimeout = 30 * time.Second
	}
	return &ZKLease{conn: conn, timeout: waitTimeout}
}

func (l *ZKLease) Acquire(ctx context.Context, name string) (func(), error) {
	path := lockRoot + "/" + name
	if err := l.ensurePath(lockRoot); err != nil {
		return nil, err
	}
	if err := l.ensurePath(path); err != nil {
		return nil, err
	}

	nodePath, err := l.conn.CreateProtectedEphemeralSequential(path+"/lock-", []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return nil, fmt.Errorf("create sequential node: %w", err)
	}

	release := func() {
		_ = l.conn.Delete(nodePath, -1)
	}

	for {
		children, _, err := l.conn.Children(path)
		if err != nil {
			release()
			return nil, fmt.Errorf("list lease children: %w", err)
		}
		sort.Strings(children)

		myName := strings.TrimPrefix(nodePath, path+"/")
		if children[0] == myName {
			return release, nil
		}

		prevIndex := -1
		for i, child := range children {
			if child == myName {
				prevIndex = i - 1
				break
			}
		}
		if prevIndex < 0 {
			release()
			return nil, errors.New("lease node missing from children, lost race")
		}
		prevPath := path + "/" + children[prevIndex]

		_, _, eventCh, err := l.conn.ExistsW(prevPath)
		if err != nil {
			if errors.Is(err, zk.ErrNoNode) {
				continue
			}
			release()
			return nil, fmt.Errorf("watch previous lease node: %w", err)
		}

		select {
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		case <-time.After(l.timeout):
			release()
			return nil, errors.New("timed out waiting for lease")
		case ev := <-eventCh:
			if ev.Type == zk.EventNodeDeleted {
				continue
			}
		}
	}
}

func (l *ZKLease) ensurePath(path string) error {
	exists, _, err := l.conn.Exists(path)
	if err != nil {
		return fmt.Errorf("check lease path %s: %w", path, err)
	}
	if exists {
		return nil
	}
	_, err = l.conn.Create(path, []byte(""), 0, zk.WorldACL(zk.PermAll))
	if err != nil && !errors.Is(err, zk.ErrNodeExists) {
		return fmt.Errorf("create lease path %s: %w", path, err)
	}
	return nil
}
