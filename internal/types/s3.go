package types

import "github.com/aws/aws-lambda-go/events"

type S3ObjectInfo struct {
	Bucket string
	Key    string
}

// ObjectsFromEvent flattens the records of an S3 notification, keeping their order.
func ObjectsFromEvent(event events.S3Event) []S3ObjectInfo {
	var objects []S3ObjectInfo
	for _, record := range event.Records {
		objects = append(objects, S3ObjectInfo{
			Bucket: record.S3.Bucket.Name,
			Key:    record.S3.Object.Key,
		})
	}
	return objects
}

// UploadResponse is returned once every record of an upload event was handled.
type UploadResponse struct {
	Status string `json:"status"`
}

const StatusOK = "ok"
