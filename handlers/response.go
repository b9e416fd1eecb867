package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope is the JSON shape every API endpoint responds with.
type Envelope struct {
	Result string `json:"result"`
	Msg    string `json:"msg"`
}

func jsonSuccess(c echo.Context) error {
	return jsonSuccessMsg(c, "")
}

func jsonSuccessMsg(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, Envelope{Result: "success", Msg: msg})
}

func jsonError(c echo.Context, msg string) error {
	return jsonErrorStatus(c, http.StatusBadRequest, msg)
}

func jsonErrorStatus(c echo.Context, status int, msg string) error {
	return c.JSON(status, Envelope{Result: "error", Msg: msg})
}

// param reads a request value from the form body or the query string,
// whichever carries it.
func param(c echo.Context, name string) string {
	if v := c.FormValue(name); v != "" {
		return v
	}
	return c.QueryParam(name)
}
