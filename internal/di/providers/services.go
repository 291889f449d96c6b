package providers

import (
	"github.com/samber/do/v2"

	"github.com/bughive/bughive-server/internal/auth"
	"github.com/bughive/bughive-server/internal/service"
	"github.com/bughive/bughive-server/internal/validation"
)

// ProvideValidator provides the shared request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideAuthService provides the registration and login service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[auth.TokenIssuer](i)
	validator := do.MustInvoke[*validation.Validator](i)
	metricsHandle := do.MustInvoke[*MetricsHandle](i)

	return service.NewAuthService(storeHandle.Store, tokens, validator, metricsHandle.Recorder, slogFor(i, "auth")), nil
}

// ProvideUserService provides the user service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)

	return service.NewUserService(storeHandle.Store, validator, slogFor(i, "users")), nil
}

// ProvideBugService provides the bug service.
func ProvideBugService(i do.Injector) (*service.BugService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)

	return service.NewBugService(storeHandle.Store, validator, slogFor(i, "bugs")), nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)

	return service.NewTagService(storeHandle.Store, validator, slogFor(i, "tags")), nil
}
