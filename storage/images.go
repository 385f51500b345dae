package storage

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Hotel image uploads go to Cloudinary via signed uploads. Configuration:
// CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY, CLOUDINARY_API_SECRET and an
// optional CLOUDINARY_FOLDER. This is a plain I/O wrapper; failures return an
// empty URL and the caller decides whether to proceed without the image.

// UploadHotelImage pushes a base64-encoded image and returns its CDN URL, or
// "" on failure.
func UploadHotelImage(base64ImageSrc string, publicID string) string {
	if base64ImageSrc == "" {
		return ""
	}

	payload := base64ImageSrc
	if i := strings.Index(base64ImageSrc, ","); i != -1 {
		payload = base64ImageSrc[i+1:]
	}

	cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME")
	apiKey := os.Getenv("CLOUDINARY_API_KEY")
	apiSecret := os.Getenv("CLOUDINARY_API_SECRET")
	folder := os.Getenv("CLOUDINARY_FOLDER")

	if cloudName == "" || apiKey == "" || apiSecret == "" {
		log.Println("image upload: missing Cloudinary credentials, skipping")
		return ""
	}

	endpoint := "https://api.cloudinary.com/v1_1/" + cloudName + "/image/upload"

	finalPublicID := publicID
	if folder != "" {
		finalPublicID = folder + "/" + publicID
	}

	form := url.Values{}
	form.Add("file", "data:image/jpeg;base64,"+payload)
	form.Add("api_key", apiKey)
	form.Add("public_id", finalPublicID)

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	form.Add("timestamp", timestamp)

	// Cloudinary signs uploads with SHA1 over the sorted params plus secret
	signatureString := fmt.Sprintf("public_id=%s&timestamp=%s%s", finalPublicID, timestamp, apiSecret)
	form.Add("signature", fmt.Sprintf("%x", sha1.Sum([]byte(signatureString))))

	req, err := http.NewRequest("POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		log.Printf("image upload: building request: %v", err)
		return ""
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("image upload: request failed: %v", err)
		return ""
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		log.Printf("image upload: reading response: %v", err)
		return ""
	}
	if res.StatusCode != http.StatusOK {
		log.Printf("image upload: status %d: %s", res.StatusCode, string(body))
		return ""
	}

	var cloudRes struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
		Error     struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &cloudRes); err != nil {
		log.Printf("image upload: parsing response: %v", err)
		return ""
	}
	if cloudRes.Error.Message != "" {
		log.Printf("image upload: cloudinary error: %s", cloudRes.Error.Message)
		return ""
	}

	if cloudRes.SecureURL != "" {
		return cloudRes.SecureURL
	}
	return cloudRes.URL
}

// DeleteHotelImage removes a previously uploaded image by its CDN URL.
func DeleteHotelImage(imageURL string) bool {
	if !strings.Contains(imageURL, "res.cloudinary.com") {
		return false
	}

	parts := strings.Split(imageURL, "/")
	if len(parts) < 2 {
		return false
	}
	publicID := strings.Split(parts[len(parts)-1], ".")[0]

	cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME")
	apiKey := os.Getenv("CLOUDINARY_API_KEY")
	apiSecret := os.Getenv("CLOUDINARY_API_SECRET")
	folder := os.Getenv("CLOUDINARY_FOLDER")
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return false
	}

	finalPublicID := publicID
	if folder != "" {
		finalPublicID = folder + "/" + publicID
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	signatureString := fmt.Sprintf("public_id=%s&timestamp=%s%s", finalPublicID, timestamp, apiSecret)

	form := url.Values{}
	form.Add("public_id", finalPublicID)
	form.Add("api_key", apiKey)
	form.Add("timestamp", timestamp)
	form.Add("signature", fmt.Sprintf("%x", sha1.Sum([]byte(signatureString))))

	endpoint := "https://api.cloudinary.com/v1_1/" + cloudName + "/image/destroy"
	req, err := http.NewRequest("POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("image delete: request failed: %v", err)
		return false
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil || res.StatusCode != http.StatusOK {
		return false
	}

	var deleteRes struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(body, &deleteRes); err != nil {
		return false
	}
	return deleteRes.Result == "ok"
}
