// Command validate provides a small CLI that validates persisted save-state
// JSON files in the ../saves directory. It checks:
//   - JSON structure and required fields
//   - File naming ({ROOM}_{player}.json with a 6-character room code)
//   - Base64 encoding of the save data and the optional screenshot
//   - Timestamp format (RFC 3339) and plausibility (not in the future)
package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SaveState mirrors the JSON schema of a persisted save-state file.
type SaveState struct {
	Data       string `json:"data"`
	Screenshot string `json:"screenshot"`
	Timestamp  string `json:"timestamp"`
}

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateSaveFile loads and validates a single save-state JSON file. It
// performs structural checks, naming checks, and payload decoding.
func validateSaveFile(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var state SaveState
	if err := json.Unmarshal(data, &state); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	// Validate the file name convention {ROOM}_{player}.json
	roomID, playerID, nameErr := parseSaveName(result.File)
	if nameErr != "" {
		result.Valid = false
		result.Errors = append(result.Errors, nameErr)
	}

	// Validate the save payload
	var saveBytes []byte
	if state.Data == "" {
		result.Valid = false
		result.Errors = append(result.Errors, "Save data is empty")
	} else {
		saveBytes, err = base64.StdEncoding.DecodeString(state.Data)
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Save data is not valid base64: %v", err))
		}
	}

	// Validate the optional screenshot
	var screenshotBytes []byte
	if state.Screenshot != "" {
		screenshotBytes, err = base64.StdEncoding.DecodeString(state.Screenshot)
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Screenshot is not valid base64: %v", err))
		}
	}

	// Validate the timestamp
	var savedAt time.Time
	if state.Timestamp == "" {
		result.Valid = false
		result.Errors = append(result.Errors, "Missing timestamp")
	} else {
		savedAt, err = time.Parse(time.RFC3339, state.Timestamp)
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Timestamp is not RFC 3339: %v", err))
		} else if savedAt.After(time.Now().Add(time.Minute)) {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Timestamp is in the future: %s", state.Timestamp))
		}
	}

	// Add informational data
	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Room: %s", roomID))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Player: %s", playerID))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Save data: %d bytes", len(saveBytes)))
		if state.Screenshot != "" {
			result.Errors = append(result.Errors, fmt.Sprintf("✓ Screenshot: %d bytes", len(screenshotBytes)))
		} else {
			result.Errors = append(result.Errors, "✓ Screenshot: none")
		}
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Saved at: %s", savedAt.Format(time.RFC3339)))
	}

	return result
}

// parseSaveName splits a save file name into its room code and player ID,
// returning a description of the problem when the name does not follow the
// {ROOM}_{player}.json convention.
func parseSaveName(name string) (roomID, playerID, problem string) {
	base := strings.TrimSuffix(name, ".json")
	if base == name {
		return "", "", "File name must end in .json"
	}

	parts := strings.SplitN(base, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "File name must follow {ROOM}_{player}.json"
	}

	roomID, playerID = parts[0], parts[1]
	if len(roomID) != 6 {
		return roomID, playerID, fmt.Sprintf("Room code must be 6 characters, got %q", roomID)
	}
	if roomID != strings.ToUpper(roomID) {
		return roomID, playerID, fmt.Sprintf("Room code must be upper case, got %q", roomID)
	}
	return roomID, playerID, ""
}

// main scans ../saves for *.json files and validates each one, printing a
// concise report and exiting with non-zero status if any are invalid.
func main() {
	saveDir := "../saves"
	if len(os.Args) > 1 {
		saveDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(saveDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding save files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No save files found in %s\n", saveDir)
		return
	}

	allValid := true
	for _, file := range files {
		result := validateSaveFile(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All save states are valid!")
	} else {
		fmt.Println("❌ Some save states have errors")
		os.Exit(1)
	}
}
