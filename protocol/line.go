package protocol

import (
	"strconv"
	"strings"

	"github.com/WatchJani/K-means/utils"
)

// Command : name of a request of the line protocol
type Command string

const (
	Number    Command = "NUMBER"
	KMeans    Command = "KMEANS"
	Location  Command = "LOCATION"
	Terminate Command = "TERMINATE"
)

const (
	OK          = "OK"
	errorPrefix = "ERROR"
)

/*---------------------------------------------------- REQUESTS ------------------------------------------------------*/

// FormatRequest builds a newline-terminated request line "<COMMAND> <payload>"
func FormatRequest(cmd Command, data []byte) string {
	if len(data) == 0 {
		return string(cmd) + "\n"
	}
	return string(cmd) + " " + string(data) + "\n"
}

// FormatNumber builds the NUMBER <n> request line
func FormatNumber(n int) string {
	return FormatRequest(Number, []byte(strconv.Itoa(n)))
}

// ParseRequest splits a request line into its upper-cased command and its payload
func ParseRequest(line string) (Command, string) {
	line = strings.TrimRight(line, "\r\n")
	parts := strings.SplitN(line, " ", 2)
	cmd := Command(strings.ToUpper(strings.TrimSpace(parts[0])))
	data := ""
	if len(parts) > 1 {
		data = parts[1]
	}
	return cmd, data
}

// ParseNumber reads the dataset size of a NUMBER request
func ParseNumber(data string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(data))
	if err != nil {
		return 0, utils.Malformed(err, "number parsing")
	}
	if n <= 0 {
		return 0, utils.Malformed(nil, "dataset size must be positive, got %d", n)
	}
	return n, nil
}

/*---------------------------------------------------- RESPONSES -----------------------------------------------------*/

// ErrorResponse builds the "ERROR <msg>" response
func ErrorResponse(msg string) string {
	return errorPrefix + " " + msg
}

// UnknownCommand builds the response to an unrecognized command
func UnknownCommand(cmd Command) string {
	return ErrorResponse("Unknown command: " + string(cmd))
}

// CheckResponse turns an "ERROR ..." response into a malformed payload error and returns the body otherwise
func CheckResponse(resp string) (string, error) {
	resp = strings.TrimRight(resp, "\r\n")
	if resp == errorPrefix || strings.HasPrefix(resp, errorPrefix+" ") {
		return "", utils.Malformed(nil, "remote: %s", strings.TrimSpace(strings.TrimPrefix(resp, errorPrefix)))
	}
	return resp, nil
}
