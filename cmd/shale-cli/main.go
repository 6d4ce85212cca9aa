package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/arohner/shale/internal/pool"
	"github.com/arohner/shale/internal/provider"
	"github.com/arohner/shale/internal/session"
	"github.com/arohner/shale/pkg/model"
	"github.com/arohner/shale/pkg/store"
)

func main() {
	endpoints := flag.String("endpoints", "localhost:2379", "Comma-separated etcd endpoints")
	nodes := flag.String("nodes", "", "Comma-separated static node urls for refresh/destroy")
	maxSessions := flag.Int("max", 0, "Max sessions for -create (0 = pool default)")
	defaultMax := flag.Int("default-max", 6, "Pool default max sessions")
	tags := flag.String("tags", "", "Comma-separated tags for -create")

	list := flag.Bool("list", false, "List all registered nodes")
	create := flag.String("create", "", "Register a node with this url")
	destroy := flag.String("destroy", "", "Destroy the node with this id")
	acquire := flag.Bool("acquire", false, "Acquire one matching under-capacity node")
	requirement := flag.String("requirement", "", `Requirement JSON, e.g. ["tag","firefox"]`)
	refresh := flag.Bool("refresh", false, "Reconcile persisted nodes with the live set")

	flag.Parse()

	etcdManager, err := store.NewEtcdManager(strings.Split(*endpoints, ","))
	if err != nil {
		log.Fatalf("Failed to connect to etcd: %v", err)
	}
	defer etcdManager.Close()

	prov := provider.NewStaticProvider(splitList(*nodes))
	nodePool := pool.New(etcdManager, prov, session.NewTracker(etcdManager), *defaultMax)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch {
	case *list:
		views, err := nodePool.Views(ctx)
		if err != nil {
			log.Fatalf("Failed to list nodes: %v", err)
		}
		printJSON(views)

	case *create != "":
		node, err := nodePool.Create(ctx, *create, splitList(*tags), *maxSessions)
		if err != nil {
			log.Fatalf("Failed to create node: %v", err)
		}
		printJSON(node)

	case *destroy != "":
		if err := nodePool.Destroy(ctx, *destroy); err != nil {
			log.Fatalf("Failed to destroy node %s: %v", *destroy, err)
		}
		fmt.Printf("Destroyed node %s\n", *destroy)

	case *acquire:
		req, err := model.ParseRequirement(json.RawMessage(*requirement))
		if err != nil {
			log.Fatalf("Bad requirement: %v", err)
		}
		node, err := nodePool.Get(ctx, req)
		if err != nil {
			log.Fatalf("Failed to acquire node: %v", err)
		}
		if node == nil {
			fmt.Println("No matching node available.")
			return
		}
		printJSON(node)

	case *refresh:
		if err := nodePool.Refresh(ctx); err != nil {
			log.Fatalf("Refresh failed: %v", err)
		}
		fmt.Println("Refresh complete.")

	default:
		flag.Usage()
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func printJSON(v any) {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
	fmt.Println(string(encoded))
}
