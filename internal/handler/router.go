package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/folio-api/internal/middleware"
	"github.com/noah-isme/folio-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Users         *UserHandler
	Organizations *OrganizationHandler
	Roles         *RoleHandler
	DocumentTypes *DocumentTypeHandler
	Documents     *DocumentHandler
	Transfers     *TransferHandler
	Tags          *TagHandler
	Logs          *LogHandler
	Dashboard     *DashboardHandler
	Storage       *StorageHandler
}

// RegisterRoutes mounts the API on the group. Every route except the signed
// download requires the auth middleware.
func RegisterRoutes(api *gin.RouterGroup, auth gin.HandlerFunc, h Handlers) {
	// The signed token is the credential for downloads.
	api.GET("/storage/objects/*token", h.Storage.Download)

	secured := api.Group("", auth)
	secured.GET("/users/me", h.Users.Me)
	secured.POST("/organizations", h.Organizations.Create)
	secured.POST("/organizations/:id/join", h.Organizations.Join)

	member := secured.Group("", middleware.RequireOrganization())
	member.GET("/organization", h.Organizations.Get)
	member.POST("/organization/campuses", h.Organizations.CreateCampus)
	member.POST("/organization/campuses/:id/departments", h.Organizations.CreateDepartment)
	member.GET("/organization/users", h.Users.ListWithRoles)
	member.DELETE("/organization/users/:id", middleware.RequireCapability(models.CapabilityManageUsers), h.Users.Remove)

	roles := member.Group("", middleware.RequireCapability(models.CapabilityManageRoles))
	roles.GET("/roles", h.Roles.List)
	roles.POST("/roles", h.Roles.Create)
	roles.PUT("/roles/:id", h.Roles.Update)
	roles.DELETE("/roles/:id", h.Roles.Delete)
	roles.GET("/campuses/:id/roles", h.Roles.ListByCampus)
	roles.GET("/users/:id/roles", h.Roles.UserRoles)
	roles.POST("/users/:id/roles/:roleId", h.Roles.Assign)
	roles.DELETE("/users/:id/roles/:roleId", h.Roles.Unassign)

	member.GET("/document-types", h.DocumentTypes.List)
	member.POST("/document-types", h.DocumentTypes.Create)
	member.PUT("/document-types/:id", h.DocumentTypes.Update)
	member.DELETE("/document-types/:id", h.DocumentTypes.Delete)

	member.POST("/storage/uploads", h.Storage.Upload)

	member.GET("/documents", h.Documents.List)
	member.POST("/documents", h.Documents.Create)
	member.GET("/documents/export", h.Documents.Export)
	member.POST("/documents/send", h.Transfers.SendMultiple)
	member.GET("/documents/control-number/:number", h.Transfers.GetByControlNumber)
	member.POST("/documents/control-number/:number/send", h.Transfers.SendByControlNumber)
	member.POST("/documents/control-number/:number/receive", h.Transfers.ReceiveByControlNumber)
	member.GET("/documents/:id", h.Documents.Get)
	member.DELETE("/documents/:id", h.Documents.Delete)
	member.GET("/documents/:id/url", h.Documents.SignedURL)
	member.POST("/documents/:id/disposition", h.Documents.Disposition)
	member.POST("/documents/:id/send", h.Transfers.Send)
	member.POST("/documents/:id/receive", h.Transfers.Receive)
	member.POST("/documents/:id/review", h.Transfers.Review)
	member.GET("/documents/:id/remarks", h.Transfers.Remarks)

	member.GET("/tags", h.Tags.List)
	member.POST("/tags", h.Tags.Create)
	member.GET("/tags/global", h.Tags.Global)
	member.GET("/tags/available", h.Tags.Available)
	member.PUT("/tags/:id", h.Tags.Update)
	member.DELETE("/tags/:id", h.Tags.Delete)

	member.GET("/logs", h.Logs.List)
	member.GET("/dashboard/stats", h.Dashboard.Stats)
}
