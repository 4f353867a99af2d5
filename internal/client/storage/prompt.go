package storage

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Credentials are what the signup and login commands ask for.
type Credentials struct {
	Name     string
	Mobile   string
	Password string
}

// PromptCredentials reads credentials line by line from in, printing
// prompts to out. The name is asked only when withName is set.
func PromptCredentials(in io.Reader, out io.Writer, withName bool) Credentials {
	scanner := bufio.NewScanner(in)
	var c Credentials

	if withName {
		fmt.Fprint(out, "Enter name: ")
		scanner.Scan()
		c.Name = strings.TrimSpace(scanner.Text())
	}

	fmt.Fprint(out, "Enter mobile number: ")
	scanner.Scan()
	c.Mobile = strings.TrimSpace(scanner.Text())

	fmt.Fprint(out, "Enter password: ")
	scanner.Scan()
	c.Password = scanner.Text()

	return c
}
