package store

import (
	"context"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Key schema. Naming is an internal contract: writer and reader must agree
// within one deployment.
const (
	NodeIndexKey     = "/shale/nodes"
	NodeAttrKeyTmpl  = "/shale/node/%s/attrs"
	NodeTagKeyTmpl   = "/shale/node/%s/tags"
	SessionKeyPrefix = "/shale/sessions/"
)

// EtcdManager backs the KV contract with an etcd cluster. Guards map onto
// transaction compares: "key unchanged since rev" becomes a ModRevision
// compare, "key absent" a CreateRevision compare against zero.
type EtcdManager struct {
	client *clientv3.Client
}

// NewEtcdManager connects to the etcd cluster shared by all coordinators.
func NewEtcdManager(endpoints []string) (*EtcdManager, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdManager{client: cli}, nil
}

func (e *EtcdManager) Get(ctx context.Context, key string) ([]byte, int64, bool, error) {
	resp, err := e.client.Get(ctx, key)
	if err != nil {
		return nil, 0, false, err
	}
	if len(resp.Kvs) == 0 {
		return nil, 0, false, nil
	}
	kv := resp.Kvs[0]
	return kv.Value, kv.ModRevision, true, nil
}

func (e *EtcdManager) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	resp, err := e.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		out[string(kv.Key)] = kv.Value
	}
	return out, nil
}

func (e *EtcdManager) Txn(ctx context.Context, guards []Guard, ops []Op) error {
	cmps := make([]clientv3.Cmp, 0, len(guards))
	for _, g := range guards {
		if g.Rev == 0 {
			cmps = append(cmps, clientv3.Compare(clientv3.CreateRevision(g.Key), "=", 0))
		} else {
			cmps = append(cmps, clientv3.Compare(clientv3.ModRevision(g.Key), "=", g.Rev))
		}
	}

	thens := make([]clientv3.Op, 0, len(ops))
	for _, op := range ops {
		if op.Del {
			thens = append(thens, clientv3.OpDelete(op.Key))
		} else {
			thens = append(thens, clientv3.OpPut(op.Key, string(op.Value)))
		}
	}

	resp, err := e.client.Txn(ctx).If(cmps...).Then(thens...).Commit()
	if err != nil {
		return err
	}
	if !resp.Succeeded {
		return ErrTxnConflict
	}
	return nil
}

func (e *EtcdManager) Close() error { return e.client.Close() }
