package main

import (
	"context"
	"fmt"

	"github.com/allii5/TextInsight/core/user"
)

// addUser creates a user.User with the given role.
func (cli *commandLine) addUser(name, uname, email, pwd, role string) error {
	roles := []string{user.RoleStudent}
	switch role {
	case "student":
	case "teacher":
		roles = []string{user.RoleTeacher}
	case "admin":
		roles = user.AllRoles
	default:
		return fmt.Errorf("unknown role %q", role)
	}

	_, err := cli.usrSvc.Create(context.Background(), user.NewUser{
		Name:     name,
		Username: uname,
		Email:    email,
		Password: pwd,
		Roles:    roles,
	})
	return err
}
