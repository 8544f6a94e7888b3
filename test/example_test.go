package test

import (
	"context"
	"fmt"
	"time"

	goPerm "github.com/MrEthical07/goPerm"
	"github.com/MrEthical07/goPerm/cache"
	"github.com/MrEthical07/goPerm/directory"
	"github.com/MrEthical07/goPerm/permission"
	"github.com/redis/go-redis/v9"
)

// ExampleNew demonstrates engine construction with production-style dependencies.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	store := directory.NewMemory()

	engine, _ := goPerm.New().
		WithDirectory(store).
		WithCache(cache.NewRedis(rdb, "gp", 10*time.Minute)).
		Build()
	_ = engine
}

// ExampleEngine_Check shows the hot-path permission gate.
func ExampleEngine_Check() {
	store := directory.NewMemory()
	server := store.CreateServer("owner-1", "general", permission.ViewChannel|permission.SendMessages)
	_ = store.AddMember(server.ID, "user-1")

	channel := goPerm.Channel{ID: "chan-1", ServerID: server.ID, Type: goPerm.ChannelText}
	_ = store.CreateChannel(context.Background(), channel)

	engine, _ := goPerm.New().WithDirectory(store).Build()
	defer engine.Close()

	allowed, _ := engine.Check(context.Background(), "user-1", "chan-1", permission.SendMessages)
	fmt.Println(allowed)
	// Output: true
}

// ExampleEngine_ApplyOverwrite shows a guarded overwrite write with deny-wins
// normalization.
func ExampleEngine_ApplyOverwrite() {
	store := directory.NewMemory()
	server := store.CreateServer("owner-1", "general", permission.ViewChannel)
	_ = store.CreateChannel(context.Background(), goPerm.Channel{ID: "chan-1", ServerID: server.ID, Type: goPerm.ChannelText})

	engine, _ := goPerm.New().WithDirectory(store).Build()
	defer engine.Close()

	err := engine.ApplyOverwrite(context.Background(), goPerm.OverwriteRequest{
		ChannelID: "chan-1",
		UserID:    "user-1",
		Allow:     permission.SendMessages,
		Deny:      permission.MentionEveryone,
	})
	fmt.Println(err)
	// Output: <nil>
}

// ExampleEngine_MetricsSnapshot shows how to read in-process metrics counters.
func ExampleEngine_MetricsSnapshot() {
	var engine *goPerm.Engine
	snapshot := engine.MetricsSnapshot()
	_ = snapshot
}
