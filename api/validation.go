package api

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/semanticallynull/bikerental-backend/bike"
)

var registerOnce sync.Once

// registerValidations adds the bike enum tags to gin's binding validator.
func registerValidations() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err = v.RegisterValidation("bikemodel", func(fl validator.FieldLevel) bool {
			_, perr := bike.ParseModel(fl.Field().String())
			return perr == nil
		}); err != nil {
			return
		}
		err = v.RegisterValidation("bikecolor", func(fl validator.FieldLevel) bool {
			_, perr := bike.ParseColor(fl.Field().String())
			return perr == nil
		})
	})
	return err
}
