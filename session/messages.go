package session

import "fmt"

// Replies sent to the phone. Each message carries its own CRLF.
const (
	MsgWelcome = "dashcam initiated. Welcome!\r\n"
	MsgGoodbye = "Terminating dashcam. GoodBye! \r\n"

	MsgCaptureBlocked        = "Cannot capture images while video is recording. Use 'end' to end video recording.\r\n"
	MsgRepeatAlreadyStarted  = "Recurring image capture already started. Use 'stop' or 'setTime' to modify.\r\n"
	MsgRecordBlocked         = "Cannot record video while image is being captured.\r\n"
	MsgVideoAlreadyRecording = "Video already recording. Use 'end' to end the recording.\r\n"
	MsgVideoOpenFailed       = "Cannot open video device. Check the camera connection.\r\n"
)

// HelpText is the reply to help, one line per command
const HelpText = "Synopsis: Capture images or video from Raspberry Pi Webcam using Android Phone over BlueTooth\r\n" +
	"Commands: \r\n" +
	"capture : Captures a single image\r\n" +
	"repeat [seconds] : Captures an image over a period defined in seconds. Default is 15 seconds.\r\n" +
	"setTime [seconds] : Sets the duration for a recurring image capture\r\n" +
	"stop : Stops recurring image capture\r\n" +
	"record : Starts a video recording\r\n" +
	"end : Ends a video recording\r\n" +
	"exit : Terminates dashcam\r\n" +
	"help : Returns this help message\r\n"

func repeatStartedMsg(seconds int) string {
	return fmt.Sprintf("Recurring image capture started. Duration set to: %d seconds\r\n", seconds)
}

func intervalSetMsg(seconds int) string {
	return fmt.Sprintf("Recurring image capture duration set to: %d seconds\r\n", seconds)
}

func invalidDurationMsg(arg string) string {
	return fmt.Sprintf("Invalid duration '%s'. Use a whole number of seconds.\r\n", arg)
}
