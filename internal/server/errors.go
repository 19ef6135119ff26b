package server

import "json4ai/internal/apperror"

var errRouteNotFound = apperror.NotFound("route_not_found", "no such endpoint")
