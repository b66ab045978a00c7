package models

import (
	"log"

	"bitbucket.org/verdealba/cultiva_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&User{}, &UserDeviceToken{},
		&Sala{},
		&GeneticStrain{}, &LegacySeed{},
		&Ciclo{}, &CicloGenetic{}, &LogEntry{},
		&Notification{}, &CuringJar{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
