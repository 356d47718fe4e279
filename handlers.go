package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"labelcheck/models"
	"labelcheck/pkg/archive"
	"labelcheck/pkg/capture"
	"labelcheck/pkg/catalog"
	"labelcheck/pkg/ocr"
	"labelcheck/pkg/pipeline"
	"labelcheck/pkg/store"
)

const maxUpload = 10 * 1024 * 1024

func setupRoutes(r *gin.Engine) {
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.POST("/check", checkUploadHandler)
	authGroup.POST("/check/text", checkTextHandler)
	authGroup.GET("/capture_and_check", captureAndCheckHandler)
	authGroup.GET("/products", listProductsHandler)
	authGroup.GET("/products/details", productDetailsHandler)
	authGroup.GET("/products/search", searchProductsHandler)
	authGroup.GET("/checks", listChecksHandler)
	authGroup.GET("/scans/:id", getScanHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if uid, ok := claims["uid"].(float64); ok && uid > 0 {
			c.Set("uid", uint(uid))
		}
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func meHandler(c *gin.Context) {
	username := c.GetString("username")
	if username == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "context missing username"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": username, "role": c.GetString("role")})
}

func registerHandler(c *gin.Context) {
	if st == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage not configured"})
		return
	}
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := RegisterUser(req.Username, req.Password); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func loginHandler(c *gin.Context) {
	if st == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage not configured"})
		return
	}
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	tokenString, err := issueToken(user.ID, user.Username, user.Role.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString})
}

// currentUserID returns the authenticated user id, if the token carried one.
func currentUserID(c *gin.Context) *uint {
	v, ok := c.Get("uid")
	if !ok {
		return nil
	}
	uid, ok := v.(uint)
	if !ok {
		return nil
	}
	return &uid
}

func archiveDir() archive.Dir { return archive.Dir{Base: uploadBaseDir()} }

// checkUploadHandler runs the pipeline on a multipart "image" upload.
func checkUploadHandler(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image missing"})
		return
	}
	if file.Size > maxUpload {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 10MB)"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}
	raw := ocr.RawImage{Data: data, ContentType: file.Header.Get("Content-Type")}
	name := time.Now().Format("20060102_150405") + "_" + archive.SanitizeName(file.Filename)
	runCheck(c, raw, name, store.Source{Kind: models.SourceUpload, FileName: file.Filename})
}

// captureAndCheckHandler fetches a camera snapshot and checks it.
func captureAndCheckHandler(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		url = cfg.SnapshotURL
	}
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "snapshot url missing"})
		return
	}
	raw, err := capture.NewFetcher(cfg.FetchTimeout).Fetch(c.Request.Context(), url)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, capture.ErrUnreachable) {
			status = http.StatusGatewayTimeout
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	name := capture.FileName("esp32", raw, time.Now())
	runCheck(c, raw, name, store.Source{Kind: models.SourceCapture, URL: url, FileName: name})
}

func runCheck(c *gin.Context, raw ocr.RawImage, name string, src store.Source) {
	dir := archiveDir()
	src.UserID = currentUserID(c)
	src.ContentType = raw.SniffedType()
	if rel, err := dir.SaveRaw("uploads", name, raw.Data); err != nil {
		log.Printf("WARN archive upload %s: %v", name, err)
	} else {
		src.StorePath = rel
	}

	res, err := checker.Check(c.Request.Context(), raw)
	if err != nil {
		log.Printf("SCAN failed %s: %v", name, err)
		if st != nil {
			if _, serr := st.SaveFailure(context.Background(), src, err); serr != nil {
				log.Printf("WARN save failed scan: %v", serr)
			}
		}
		c.JSON(checkErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	if src.StorePath != "" {
		if rel, err := dir.SaveProcessed(src.StorePath, res.ProcessedImage); err != nil {
			log.Printf("WARN archive processed %s: %v", name, err)
		} else {
			src.ProcessedPath = rel
		}
	}
	respondResult(c, res, src)
}

func checkErrorStatus(err error) int {
	switch {
	case errors.Is(err, ocr.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, ocr.ErrRecognition):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// checkTextHandler evaluates already recognized text.
func checkTextHandler(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res := checker.CheckText(req.Text)
	respondResult(c, res, store.Source{Kind: models.SourceText, UserID: currentUserID(c)})
}

func respondResult(c *gin.Context, res *pipeline.Result, src store.Source) {
	out := gin.H{
		"result":         res,
		"filename":       src.StorePath,
		"processed_file": src.ProcessedPath,
	}
	if st != nil {
		scan, err := st.SaveResult(c.Request.Context(), res, src)
		if err != nil {
			log.Printf("WARN save scan: %v", err)
		} else {
			out["scan_id"] = scan.ID
		}
	}
	c.JSON(http.StatusOK, out)
}

func listProductsHandler(c *gin.Context) {
	type item struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	entries := products.Entries(catalog.ParseCategory(c.Query("category")))
	out := make([]item, 0, len(entries))
	for i, e := range entries {
		out = append(out, item{ID: i, Name: e.Name})
	}
	c.JSON(http.StatusOK, out)
}

func productDetailsHandler(c *gin.Context) {
	idx, err := strconv.Atoi(c.Query("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return
	}
	e, err := products.Entry(catalog.ParseCategory(c.Query("category")), idx)
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	details := e.Details
	if details == "" {
		details = e.Name
	}
	c.JSON(http.StatusOK, gin.H{"name": e.Name, "details": details, "price": e.Price, "image": e.Image, "category": e.Category})
}

func searchProductsHandler(c *gin.Context) {
	res := products.Search(c.Query("q"), catalog.ParseCategory(c.Query("category")))
	if res == nil {
		res = []catalog.Entry{}
	}
	c.JSON(http.StatusOK, res)
}

func listChecksHandler(c *gin.Context) {
	if st == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage not configured"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	checks, err := st.ListChecks(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, checks)
}

// getScanHandler returns a scan; inspectors only see their own.
func getScanHandler(c *gin.Context) {
	if st == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage not configured"})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	scan, err := st.GetScan(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if c.GetString("role") != models.RoleAdministrator {
		uid := currentUserID(c)
		if uid == nil || scan.UserID == nil || *scan.UserID != *uid {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
	}
	c.JSON(http.StatusOK, scan)
}
