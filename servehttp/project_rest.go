package servehttp

import (
	"errors"
	"net/http"
	"strings"

	"atlas/bizerror"
	"atlas/common"
	"atlas/domain"
	"atlas/domain/project"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var ProjectsApiRoot = "/v1/projects"

func RegisterProjectsRestApis(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	projects := r.Group(ProjectsApiRoot, middleWares...)
	projects.POST("", HandleCreateProject)
	projects.GET("", HandleQueryProjects)
	projects.GET(":id", HandleDetailProject)
	projects.PUT(":id", HandleUpdateProject)
	projects.DELETE(":id", HandleDeleteProject)
}

// bindBody decodes the request body. Constraint failures on declared fields
// respond as unprocessable, same as the normalizer failures on their sibling
// fields; only an undecodable body stays a bad request.
func bindBody(c *gin.Context, payload interface{}) {
	err := c.ShouldBindBodyWith(payload, binding.JSON)
	if err == nil {
		return
	}
	var violations validator.ValidationErrors
	if errors.As(err, &violations) && len(violations) > 0 {
		violation := violations[0]
		field := strings.ToLower(violation.Field())
		if violation.Tag() == "required" {
			panic(&bizerror.ErrMissingField{Field: field})
		}
		panic(&bizerror.ErrFieldViolation{Field: field, Rule: violation.Tag()})
	}
	panic(&common.ErrBadParam{Cause: err})
}

func HandleCreateProject(c *gin.Context) {
	payload := domain.ProjectCreating{}
	bindBody(c, &payload)

	record, err := project.CreateProjectFunc(c.Request.Context(), &payload)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, record)
}

func HandleQueryProjects(c *gin.Context) {
	result, err := project.QueryProjectsFunc(c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &result)
}

func HandleDetailProject(c *gin.Context) {
	result, err := project.DetailProjectFunc(c.Request.Context(), c.Param("id"))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, result)
}

func HandleUpdateProject(c *gin.Context) {
	payload := domain.ProjectUpdating{}
	bindBody(c, &payload)

	id := c.Param("id")
	if err := project.UpdateProjectFunc(c.Request.Context(), id, &payload); err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Project " + id + " updated"})
}

func HandleDeleteProject(c *gin.Context) {
	id := c.Param("id")
	if err := project.DeleteProjectFunc(c.Request.Context(), id); err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Project " + id + " deleted"})
}
