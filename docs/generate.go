package docs

// docs.go is regenerated from the handler annotations; commit the result.
//go:generate swag init --dir ../ --generalInfo cmd/server/main.go --output . --outputTypes go --parseInternal
