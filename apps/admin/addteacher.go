package main

import "context"

// addTeacher updates or creates a teacher.Teacher
func (cli *commandLine) addTeacher(uname, fullName, email, pwd string) error {
	_, err := cli.teacherSvc.Add(context.Background(), uname, fullName, email, pwd)
	return err
}
