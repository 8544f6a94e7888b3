package test

import (
	"context"
	"net/http"
	"testing"

	goPerm "github.com/MrEthical07/goPerm"
	"github.com/MrEthical07/goPerm/middleware"
	"github.com/MrEthical07/goPerm/permission"
)

// This test intentionally guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = goPerm.New

	var _ *goPerm.Engine
	var _ goPerm.Config
	var _ goPerm.Server
	var _ goPerm.Role
	var _ goPerm.Channel
	var _ goPerm.ChannelOverwrite
	var _ goPerm.OverwriteRequest
	var _ goPerm.Directory
	var _ goPerm.MutationStore
	var _ goPerm.ResolutionCache
	var _ goPerm.InvalidationSink
	var _ goPerm.InvalidationEvent

	var _ error = goPerm.ErrChannelNotFound
	var _ error = goPerm.ErrServerNotFound
	var _ error = goPerm.ErrNotAMember
	var _ error = goPerm.ErrNotServerChannel
	var _ error = goPerm.ErrDirectoryUnavailable
	var _ error = goPerm.ErrInvalidOverwrite
	var _ error = goPerm.ErrEveryoneRoleImmutable

	var _ permission.Mask = permission.Administrator
	var _ func() *permission.Registry = permission.DefaultRegistry

	var _ func(middleware.GuardConfig) func(http.Handler) http.Handler = middleware.Guard
	var _ func(*goPerm.Engine, []byte, permission.Mask) func(http.Handler) http.Handler = middleware.RequirePermission

	var _ func(*goPerm.Engine, context.Context, string, string) (permission.Mask, error) = (*goPerm.Engine).Resolve
	var _ func(*goPerm.Engine, context.Context, string, string) (permission.Mask, error) = (*goPerm.Engine).ResolveServer
	var _ func(*goPerm.Engine, context.Context, string, string, permission.Mask) (bool, error) = (*goPerm.Engine).Check
	var _ func(*goPerm.Engine, context.Context, goPerm.OverwriteRequest) error = (*goPerm.Engine).ApplyOverwrite
	var _ func(*goPerm.Engine, context.Context, goPerm.Channel) error = (*goPerm.Engine).CreateChannel
	var _ func(*goPerm.Engine, context.Context, string, string, string) error = (*goPerm.Engine).AssignRole
}
