package admin

import (
	"crypto/subtle"

	"git.solsynth.dev/hypernet/forms/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
)

type controller struct {
	store  *services.Store
	closer *services.Closer
}

// MapControllers mounts the operator API under baseURL. Every route requires
// "Authorization: Bearer <token>"; an empty token leaves the API unmounted.
func MapControllers(app *fiber.App, baseURL, token string, store *services.Store, closer *services.Closer) {
	if token == "" {
		return
	}

	ctrl := &controller{store: store, closer: closer}
	admin := app.Group(baseURL, keyauth.New(keyauth.Config{
		Validator: func(_ *fiber.Ctx, key string) (bool, error) {
			if subtle.ConstantTimeCompare([]byte(key), []byte(token)) != 1 {
				return false, keyauth.ErrMissingOrMalformedAPIKey
			}
			return true, nil
		},
	}))
	{
		admin.Get("/forms", ctrl.listForms)
		admin.Post("/forms/finish", ctrl.finishForm)
	}
}
