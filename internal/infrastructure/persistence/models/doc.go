// Package models holds the gorm table models behind the repositories.
//
// Domain types carry no gorm tags. Every model converts with a ...FromDomain
// constructor and a ToDomain method; money is stored as numeric(12,2).
package models
