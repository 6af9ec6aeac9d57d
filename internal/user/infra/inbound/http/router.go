package http

import "github.com/gin-gonic/gin"

func RegisterUserRoutes(r gin.IRouter, handler *UserHandler) {
	users := r.Group("/users")
	{
		users.POST("", handler.RegisterUser)
		users.GET("/:id", handler.GetUser)
		users.PUT("/:id/email", handler.ChangeEmail)
		users.DELETE("/:id", handler.DeleteUser)
	}
}
