package main

import "student_mentor/client/mentor-cli/cmd"

func main() {
	cmd.Execute()
}
